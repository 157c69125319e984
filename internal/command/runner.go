package command

import (
	"context"
	"fmt"
	"io"
	"log"

	"KebaP30c-Client/internal/config"
	"KebaP30c-Client/internal/keba"
	"KebaP30c-Client/internal/metrics"
	"KebaP30c-Client/internal/modbusconn"
	"KebaP30c-Client/internal/report"
)

// Querier fetches a UDP report.
type Querier interface {
	Query(ctx context.Context, n int) (string, error)
}

// Runner executes commands against the configured station.
type Runner struct {
	Config  *config.Config
	Station *keba.Station
	Reports Querier
	Out     io.Writer

	metrics *metrics.Reporter
}

// NewRunner builds a Runner and its network clients from the configuration.
func NewRunner(conf *config.Config, out io.Writer) (*Runner, error) {
	dial, err := modbusconn.NewDialer(conf.Device.Driver, modbusconn.Config{
		Addr:    conf.ModbusAddr(),
		UnitID:  conf.Device.UnitID,
		Timeout: conf.Timeout(),
		Logger:  log.New(log.Writer(), "modbus: ", log.Flags()),
	})
	if err != nil {
		return nil, err
	}
	m, err := metrics.New(conf.StatsServer, "station:"+conf.Device.Host)
	if err != nil {
		log.Printf("Error creating stats client %v", err)
	}
	station := &keba.Station{
		Addr: conf.Device.Host,
		Dial: dial,
		Wait: keba.Sleep,
		Out:  out,
	}
	if m != nil {
		station.Recorder = m
	}
	return &Runner{
		Config:  conf,
		Station: station,
		Reports: &report.Client{
			Host:      conf.Device.Host,
			Port:      conf.Report.Port,
			LocalPort: conf.Report.LocalPort,
			Timeout:   conf.ReportTimeout(),
		},
		Out:     out,
		metrics: m,
	}, nil
}

// Close releases the metrics client.
func (r *Runner) Close() {
	r.metrics.Close()
}

// Run executes one command. Errors are returned to the caller, which owns
// all error reporting.
func (r *Runner) Run(ctx context.Context, c Command) error {
	switch c.Kind {
	case Help:
		fmt.Fprint(r.Out, HelpText)
		return nil
	case SetCurrent:
		if err := r.setCurrent(ctx, c.Preset); err != nil {
			return fmt.Errorf("configure current: %w", err)
		}
		return nil
	case SetStationState:
		if err := r.Station.SetEnabled(ctx, c.Enable); err != nil {
			return fmt.Errorf("change station state: %w", err)
		}
		return nil
	case Report:
		if err := r.report(ctx, c.Report); err != nil {
			return fmt.Errorf("report %d: %w", c.Report, err)
		}
		return nil
	}
	return fmt.Errorf("unhandled command %s", c.Kind)
}

func (r *Runner) setCurrent(ctx context.Context, p config.Preset) error {
	ma, err := r.Config.Milliamps(p)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.Out, "Loading User Current (A) from config = %d\n", ma/1000)
	return r.Station.SetCurrent(ctx, ma)
}

func (r *Runner) report(ctx context.Context, n int) error {
	fmt.Fprintf(r.Out, "Query Report%d via UDP\n", n)
	resp, err := r.Reports.Query(ctx, n)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.Out, "Report %d Response %s\n", n, resp)
	if n == 2 {
		if rep, err := report.ParseReport2(resp); err == nil {
			fmt.Fprintf(r.Out, "Report %d: %s\n", n, rep.Summary())
		}
	}
	return nil
}
