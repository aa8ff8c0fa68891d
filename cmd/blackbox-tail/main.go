/*
DESCRIPTION
  blackbox-tail watches a Blackbox log file that's still being written to
  (e.g. a flight controller streaming telemetry over a serial-to-file
  bridge) and prints each newly appended frame as it's decoded.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package blackbox-tail is a live-tailing CLI for a growing Blackbox log
// file: an fsnotify watcher goroutine detects appended bytes and feeds them
// to a single Decoder on the main goroutine (spec.md §5's single-threaded
// decode guarantee; see SPEC_FULL.md §5).
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/blackbox/bytestream"
	"github.com/ausocean/blackbox/flightlog"
)

// Logging related constants, in the style of cmd/rv/main.go and
// cmd/looper/main.go.
const (
	logPath      = "blackbox-tail.log"
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

// pollInterval is how long to wait for a burst of fsnotify Write events on
// the same file to settle before re-decoding, avoiding a re-decode per
// individual small write.
const pollInterval = 200 * time.Millisecond

func main() {
	path := flag.String("path", "", "path to the growing Blackbox log file to tail")
	raw := flag.Bool("raw", false, "suppress predictors and validity checks, dumping raw on-the-wire deltas")
	flag.Parse()

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	l := logging.New(logVerbosity, fileLog, logSuppress)

	if *path == "" {
		l.Fatal("no log file given", "usage", "-path <file>")
	}

	t, err := newTailer(*path, *raw, l)
	if err != nil {
		l.Fatal("could not start tailer", "path", *path, "error", err.Error())
	}
	defer t.close()

	t.run()
}

// tailer owns the Decoder, the fsnotify watcher, and the dedup cursor that
// stops already-printed frames from being reported twice across re-decodes.
type tailer struct {
	path string
	log  logging.Logger

	watcher *fsnotify.Watcher
	dec     *flightlog.Decoder

	// printedThrough is the byteOffset of the last frame that was reported
	// to stdout; completeFrame calls at or before this offset are skipped
	// on the next re-decode (spec.md §9's golden re-parse property: rerunning
	// ParseHeader+ParseLogData over the same bytes is deterministic, so the
	// same prefix of frames is always reproduced).
	printedThrough int
	haveHeader     bool
	headerLen      int
}

func newTailer(path string, raw bool, l logging.Logger) (*tailer, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}

	t := &tailer{
		path:           path,
		log:            l,
		watcher:        w,
		printedThrough: -1,
	}

	dec, err := flightlog.NewDecoder(
		flightlog.WithLogger(l),
		flightlog.WithRawMode(raw),
		flightlog.WithFrameSink(t.onFrame),
	)
	if err != nil {
		w.Close()
		return nil, err
	}
	t.dec = dec
	return t, nil
}

func (t *tailer) close() { t.watcher.Close() }

// run blocks, re-decoding the file from the top every time fsnotify reports
// it changed, and exiting if the watched file is removed.
func (t *tailer) run() {
	t.decodeOnce()

	var pending *time.Timer
	fire := make(chan struct{})

	for {
		select {
		case ev, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(t.path) {
				continue
			}
			if ev.Op&fsnotify.Remove == fsnotify.Remove {
				t.log.Info("watched log file removed", "path", t.path)
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if pending == nil {
				pending = time.AfterFunc(pollInterval, func() { fire <- struct{}{} })
			} else {
				pending.Reset(pollInterval)
			}

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			t.log.Error("watcher error", "error", err.Error())

		case <-fire:
			t.decodeOnce()
		}
	}
}

// decodeOnce re-reads the file from disk and replays it through the Decoder
// from the top (Decoder.ResetState), relying on the onFrame dedup cursor to
// suppress frames already reported. This sidesteps needing to know, ahead of
// a re-decode, whether the file's current tail is a complete frame or one
// still being written: a partial trailing frame may be reported corrupt on
// this pass and then superseded by a valid report once more bytes land and
// the next re-decode replaces it.
func (t *tailer) decodeOnce() {
	data, err := os.ReadFile(t.path)
	if err != nil {
		t.log.Error("could not read log file", "path", t.path, "error", err.Error())
		return
	}

	s := bytestream.New(data)
	if !t.haveHeader {
		if err := t.dec.ParseHeader(s); err != nil {
			t.log.Error("header parse failed", "error", err.Error())
			return
		}
		t.haveHeader = true
		t.headerLen = s.Pos()
	} else {
		// ResetState keeps the schema (ParseHeader isn't re-run) but rewinds
		// history/validity to their post-header values, so replaying from
		// just past the header reproduces the same frame sequence as the
		// first pass plus whatever's newly appended (spec.md §9's golden
		// re-parse property). ResetStats must accompany it: without it,
		// every re-decode would recount the whole file's bytes/fields on
		// top of the previous pass's totals instead of replacing them.
		t.dec.ResetState()
		t.dec.ResetStats()
		s.Seek(t.headerLen)
	}

	if _, err := t.dec.ParseLogData(s); err != nil {
		t.log.Error("schema-fatal error while decoding log data", "error", err.Error())
	}
}

// onFrame is the FrameSink passed to the Decoder: it prints to stdout every
// valid frame whose byteOffset is past the dedup cursor; invalid frames are
// only written to the debug log. Only a valid frame advances the
// cursor; a corrupt frame at the growing tail may simply be one that hasn't
// finished arriving yet, and must stay eligible to be re-reported (and
// superseded) once a later pass decodes it successfully (spec.md §9).
func (t *tailer) onFrame(valid bool, f flightlog.Frame, le flightlog.LastEvent, tag flightlog.FrameType, byteOffset, byteLength int) {
	if byteOffset <= t.printedThrough {
		return
	}

	if !valid {
		t.log.Debug("corrupt frame", "tag", string(rune(tag)), "offset", byteOffset, "len", byteLength)
		return
	}
	t.printedThrough = byteOffset

	if tag == flightlog.FrameEvent {
		fmt.Printf("off=%-8d len=%-4d %c  event kind=%d\n", byteOffset, byteLength, byte(tag), int(le.Kind))
		return
	}
	fmt.Printf("off=%-8d len=%-4d %c  %v\n", byteOffset, byteLength, byte(tag), f.Values)
}
