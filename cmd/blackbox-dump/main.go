/*
DESCRIPTION
  blackbox-dump decodes a single Blackbox telemetry log and prints its
  discovered schema, per-field observed ranges, and per-frame-type counts.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package blackbox-dump is a one-shot CLI that decodes a Blackbox log file
// and reports its schema and decode statistics.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/blackbox/bytestream"
	"github.com/ausocean/blackbox/flightlog"
)

// Logging related constants, in the style of cmd/rv and cmd/looper, but
// writing only to stderr since this is a one-shot tool with no cloud
// logging or log rotation to manage.
const (
	logVerbosity = logging.Info
	logSuppress  = false
)

func main() {
	path := flag.String("path", "", "path to the Blackbox log file to decode")
	raw := flag.Bool("raw", false, "suppress predictors and validity checks, dumping raw on-the-wire deltas")
	verbose := flag.Bool("verbose", false, "print every decoded frame as it's seen, not just the summary")
	flag.Parse()

	l := logging.New(logVerbosity, os.Stderr, logSuppress)

	if *path == "" {
		l.Fatal("no log file given", "usage", "-path <file>")
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		l.Fatal("could not read log file", "path", *path, "error", err.Error())
	}

	var frameCount int
	opts := []flightlog.Option{
		flightlog.WithLogger(l),
		flightlog.WithRawMode(*raw),
	}
	if *verbose {
		opts = append(opts, flightlog.WithFrameSink(func(valid bool, f flightlog.Frame, le flightlog.LastEvent, tag flightlog.FrameType, byteOffset, byteLength int) {
			frameCount++
			fmt.Printf("%6d  off=%-8d len=%-4d %c  valid=%v\n", frameCount, byteOffset, byteLength, byte(tag), valid)
		}))
	}

	dec, err := flightlog.NewDecoder(opts...)
	if err != nil {
		l.Fatal("could not construct decoder", "error", err.Error())
	}

	s := bytestream.New(data)
	if err := dec.ParseHeader(s); err != nil {
		l.Fatal("header parse failed", "error", err.Error())
	}

	if _, err := dec.ParseLogData(s); err != nil {
		l.Fatal("schema-fatal error while decoding log data", "error", err.Error())
	}

	printSchema(dec)
	printStats(dec)
}

// printSchema reports the field schema discovered for each declared frame
// type, using Decoder.FrameDef (the frame-type registry introspection added
// for this tool, SPEC_FULL.md §4).
func printSchema(dec *flightlog.Decoder) {
	fmt.Println("schema:")
	for _, tag := range []flightlog.FrameType{flightlog.FrameIntra, flightlog.FrameGPS, flightlog.FrameHome} {
		def, ok := dec.FrameDef(tag)
		if !ok {
			fmt.Printf("  %c: not declared\n", byte(tag))
			continue
		}
		fmt.Printf("  %c: %v\n", byte(tag), def.Names)
	}
}

// printStats prints the accumulated StatsCollector state: per-frame-type
// counts, total corrupt frames, decode throughput, and every observed
// field's min/max range.
func printStats(dec *flightlog.Decoder) {
	st := dec.Stats()

	fmt.Println("frame counts:")
	for _, tag := range []flightlog.FrameType{flightlog.FrameIntra, flightlog.FrameInter, flightlog.FrameGPS, flightlog.FrameHome, flightlog.FrameEvent} {
		fs := st.FrameType[tag]
		fmt.Printf("  %c: valid=%d corrupt=%d desync=%d bytes=%d\n", byte(tag), fs.ValidCount, fs.CorruptCount, fs.DesyncCount, fs.Bytes)
	}
	fmt.Printf("total bytes: %d, total corrupt frames: %d, intentionally absent iterations: %d\n",
		st.TotalBytes, st.TotalCorruptFrames, st.IntentionallyAbsentIterations)
	fmt.Printf("throughput: %d bytes/sec\n", st.Throughput())

	fmt.Println("field ranges:")
	for name, r := range st.Fields {
		if !r.Seen {
			continue
		}
		fmt.Printf("  %-20s min=%-12d max=%d\n", name, r.Min, r.Max)
	}
}
