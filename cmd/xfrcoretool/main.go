/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package main

import (
	"fmt"
	"log"
	"strconv"

	"github.com/miekg/dns"
	"github.com/spf13/cobra"

	"github.com/anstenberg/xfrcore"
)

var verbose, debug bool

var rootCmd = &cobra.Command{
	Use:   "xfrcoretool",
	Short: "Inspect and exercise the AXFR/IXFR transfer-in core from the command line",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		xfrcore.SetupCliLogging(verbose, debug)
	},
}

var serialDiffCmd = &cobra.Command{
	Use:   "serial-diff <s1> <s2>",
	Short: "Print the RFC 1982 signed difference s1 - s2 and whether a transfer is needed",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		s1, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		s2, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		diff := xfrcore.SerialDifference(uint32(s1), uint32(s2))
		fmt.Printf("%d - %d = %d\n", s1, s2, diff)
		fmt.Printf("transfer needed (treating s1 as remote, s2 as current): %v\n",
			xfrcore.TransferNeeded(uint32(s2), uint32(s1)))
	},
}

var buildQueryCmd = &cobra.Command{
	Use:   "build-query <zone> <axfr|ixfr|soa> [currentSerial]",
	Short: "Construct a transfer or probe query and print its wire size",
	Args:  cobra.RangeArgs(2, 3),
	Run: func(cmd *cobra.Command, args []string) {
		zone := xfrcore.NewName(args[0])
		var m *dns.Msg
		var err error

		switch args[1] {
		case "soa":
			m, err = xfrcore.BuildSOAQuery(zone)
		case "axfr":
			m, err = xfrcore.BuildAXFRQuery(zone)
		case "ixfr":
			if len(args) != 3 {
				log.Fatalf("Error: ixfr requires a currentSerial argument")
			}
			serial, perr := strconv.ParseUint(args[2], 10, 32)
			if perr != nil {
				log.Fatalf("Error: %v", perr)
			}
			m, err = xfrcore.BuildIXFRQuery(zone, uint32(serial))
		default:
			log.Fatalf("Error: unknown query kind %q", args[1])
		}
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		buf, err := m.Pack()
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		fmt.Printf("query id=%d qtype=%s bytes=%d\n", m.Id, dns.TypeToString[m.Question[0].Qtype], len(buf))
	},
}

var addRecords, removeRecords []string

var applyChangesetCmd = &cobra.Command{
	Use:   "apply-changeset <zone> <fromSerial> <toSerial>",
	Short: "Build a single changeset from --add/--remove records and apply it to a fresh in-memory zone",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		zone := xfrcore.NewName(args[0])
		from, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		to, err := strconv.ParseUint(args[2], 10, 32)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		z := xfrcore.NewZone(zone, uint32(from))

		list := xfrcore.NewChangesetList()
		cs := list.Allocate(uint32(from), uint32(to))
		for _, rec := range removeRecords {
			rr, perr := dns.NewRR(rec)
			if perr != nil {
				log.Fatalf("Error parsing --remove record %q: %v", rec, perr)
			}
			cs.AddRemoved(rr)
		}
		for _, rec := range addRecords {
			rr, perr := dns.NewRR(rec)
			if perr != nil {
				log.Fatalf("Error parsing --add record %q: %v", rec, perr)
			}
			cs.AddAdded(rr)
		}
		soa, err := dns.NewRR(fmt.Sprintf("%s 3600 IN SOA ns1.%s hostmaster.%s %d 600 600 3600000 604800",
			zone.String(), zone.String(), zone.String(), to))
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		cs.NewSOA = soa.(*dns.SOA)

		if err := z.ApplyChangesetList(list); err != nil {
			log.Fatalf("Error: %v", err)
		}
		fmt.Printf("applied: serial %d -> %d, %d nodes\n", from, to, z.Contents().NodeCount())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Debug output")
	applyChangesetCmd.Flags().StringArrayVar(&addRecords, "add", nil, "record to add, in zone-file syntax (repeatable)")
	applyChangesetCmd.Flags().StringArrayVar(&removeRecords, "remove", nil, "record to remove, in zone-file syntax (repeatable)")
	rootCmd.AddCommand(serialDiffCmd, buildQueryCmd, applyChangesetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
