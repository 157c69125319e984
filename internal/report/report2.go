package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Report2 is the JSON body returned for "report 2".
type Report2 struct {
	ID         string `json:"ID"`
	State      int    `json:"State"`
	Error1     int    `json:"Error1"`
	Error2     int    `json:"Error2"`
	Plug       int    `json:"Plug"`
	AuthOn     int    `json:"AuthON"`
	AuthReq    int    `json:"Authreq"`
	EnableSys  int    `json:"Enable sys"`
	EnableUser int    `json:"Enable user"`
	MaxCurr    int    `json:"Max curr"`   // mA
	MaxCurrPct int    `json:"Max curr %"` // 0.1%
	CurrHW     int    `json:"Curr HW"`    // mA
	CurrUser   int    `json:"Curr user"`  // mA
	CurrFS     int    `json:"Curr FS"`    // mA
	TmoFS      int    `json:"Tmo FS"`     // seconds
	CurrTimer  int    `json:"Curr timer"` // mA
	TmoCT      int    `json:"Tmo CT"`     // seconds
	SetEnergy  int    `json:"Setenergy"`  // 0.1 Wh
	Output     int    `json:"Output"`
	Input      int    `json:"Input"`
	Serial     string `json:"Serial"`
	Sec        int    `json:"Sec"`
}

var plugStates = map[int]string{
	0: "unplugged",
	1: "plugged on station",
	3: "plugged on station, locked",
	5: "plugged on station and vehicle",
	7: "plugged on station and vehicle, locked",
}

// ParseReport2 decodes a "report 2" reply.
func ParseReport2(s string) (*Report2, error) {
	var r Report2
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &r); err != nil {
		return nil, err
	}
	if r.ID != "2" {
		return nil, fmt.Errorf("unexpected report id %q", r.ID)
	}
	return &r, nil
}

// Summary is a single line description of the report.
func (r *Report2) Summary() string {
	plug, ok := plugStates[r.Plug]
	if !ok {
		plug = fmt.Sprintf("plug %d", r.Plug)
	}
	return fmt.Sprintf("state %d, %s, enabled %d/%d, current user %.1fA hw %.1fA max %.1fA, errors %d/%d",
		r.State, plug, r.EnableSys, r.EnableUser,
		float64(r.CurrUser)/1000, float64(r.CurrHW)/1000, float64(r.MaxCurr)/1000,
		r.Error1, r.Error2)
}
