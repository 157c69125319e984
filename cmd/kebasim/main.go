// kebasim runs a simulated KEBA P30 station for trying the tool without
// hardware, e.g.
//
//	kebasim -modbus 127.0.0.1:1502 -report 127.0.0.1:17090 -charging
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"KebaP30c-Client/internal/kebasim"
)

func main() {
	modbusAddr := flag.String("modbus", "127.0.0.1:502", "Modbus-TCP listen address")
	reportAddr := flag.String("report", "127.0.0.1:7090", "UDP report listen address (empty to disable)")
	charging := flag.Bool("charging", false, "Start with an active charging session")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	sim := kebasim.New()
	if *charging {
		sim.StartCharging()
	}
	addr, err := sim.ListenModbus(*modbusAddr)
	if err != nil {
		log.Fatalf("Modbus listen on %s: %v", *modbusAddr, err)
	}
	log.Printf("Modbus-TCP listening on %s", addr)
	if *reportAddr != "" {
		addr, err := sim.ListenReport(*reportAddr)
		if err != nil {
			sim.Close()
			log.Fatalf("UDP listen on %s: %v", *reportAddr, err)
		}
		log.Printf("UDP reports on %s", addr)
	}
	log.Printf("State: %s", sim.State())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	sim.Close()
	for _, w := range sim.Writes() {
		log.Printf("Write %s", w)
	}
	for _, r := range sim.Reports() {
		log.Printf("Report query %q", r)
	}
	log.Printf("Final state: %s, enabled %v, user current %dmA", sim.State(), sim.Enabled(), sim.UserCurrent())
}
