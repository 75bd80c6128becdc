// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package jsonsink provides a demultiplexer target that writes what it
// receives as JSON objects, one per line.
package jsonsink

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/juju/errors"

	"github.com/juju/logdemux/core/stream"
	"github.com/juju/logdemux/internal/demux"
)

// DefaultBatchSize is the number of lines buffered before a write when no
// batch size is given.
const DefaultBatchSize = 100

// Record is the JSON form of one line or flush.
type Record struct {
	Source string       `json:"source"`
	Line   *string      `json:"line,omitempty"`
	Flush  *FlushRecord `json:"flush,omitempty"`
}

// FlushRecord is the JSON form of a demux.Flush.
type FlushRecord struct {
	LastItem time.Time `json:"last-item"`
	Time     time.Time `json:"time"`
	Final    bool      `json:"final,omitempty"`
}

// Sink is a demux.Target that encodes the lines of one source. Lines are
// batched; a flush is written straight away along with any lines before
// it.
type Sink struct {
	lifecycle stream.Lifecycle

	source    string
	writer    io.WriteCloser
	create    func() (io.WriteCloser, error)
	batchSize int

	records []Record
	buffer  bytes.Buffer
	encoder *json.Encoder
}

var _ demux.Target = (*Sink)(nil)

// New returns a sink for the named source. The sink takes ownership of
// writer and closes it when the sink is closed. A batchSize of zero or
// less means DefaultBatchSize.
func New(source string, writer io.WriteCloser, batchSize int) *Sink {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	s := &Sink{
		source:    source,
		writer:    writer,
		batchSize: batchSize,
	}
	s.encoder = json.NewEncoder(&s.buffer)
	return s
}

// NewFile returns a sink for the named source that writes to the file at
// path. The file is created, or truncated, when the sink is opened.
func NewFile(source, path string, batchSize int) *Sink {
	s := New(source, nil, batchSize)
	s.create = func() (io.WriteCloser, error) {
		return os.Create(path)
	}
	return s
}

// Open is part of the demux.Target interface.
func (s *Sink) Open() error {
	if err := s.lifecycle.Open(); err != nil {
		return errors.Trace(err)
	}
	if s.create == nil {
		return nil
	}
	w, err := s.create()
	if err != nil {
		_ = s.lifecycle.Close()
		return errors.Annotatef(err, "creating %q output", s.source)
	}
	s.writer = w
	return nil
}

// Item is part of the demux.Target interface.
func (s *Sink) Item(line string) error {
	if err := s.lifecycle.Check("item"); err != nil {
		return errors.Trace(err)
	}
	s.records = append(s.records, Record{Source: s.source, Line: &line})
	if len(s.records) < s.batchSize {
		return nil
	}
	return errors.Trace(s.write())
}

// Separator is part of the demux.Target interface.
func (s *Sink) Separator(flush demux.Flush) error {
	if err := s.lifecycle.Check("separator"); err != nil {
		return errors.Trace(err)
	}
	s.records = append(s.records, Record{
		Source: s.source,
		Flush: &FlushRecord{
			LastItem: flush.LastItem,
			Time:     flush.Time,
			Final:    flush.Final,
		},
	})
	return errors.Trace(s.write())
}

// Close writes any buffered lines and closes the writer.
func (s *Sink) Close() error {
	if err := s.lifecycle.Close(); err != nil {
		return errors.Trace(err)
	}
	writeErr := s.write()
	closeErr := s.writer.Close()
	if s.create != nil {
		s.writer = nil
	}
	if writeErr != nil {
		return errors.Trace(writeErr)
	}
	return errors.Annotatef(closeErr, "closing %q output", s.source)
}

func (s *Sink) write() error {
	if len(s.records) == 0 {
		return nil
	}
	defer func() {
		s.records = s.records[:0]
		s.buffer.Reset()
	}()
	for _, record := range s.records {
		if err := s.encoder.Encode(record); err != nil {
			return errors.Annotatef(err, "encoding %q record", s.source)
		}
	}
	if _, err := s.writer.Write(s.buffer.Bytes()); err != nil {
		return errors.Annotatef(err, "writing %d %q records", len(s.records), s.source)
	}
	return nil
}

// FileFactory returns a demux.TargetFactory that writes each source to
// its own file in dir. Nothing is created in dir until a target is opened.
func FileFactory(dir string, batchSize int) demux.TargetFactory {
	return func(name string) (demux.Target, error) {
		return NewFile(name, filepath.Join(dir, FileName(name)), batchSize), nil
	}
}

// FileName returns the name of the file FileFactory writes source to.
func FileName(source string) string {
	name := strings.Trim(source, string(filepath.Separator))
	name = strings.ReplaceAll(name, string(filepath.Separator), "_")
	return name + ".json"
}
