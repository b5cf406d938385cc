// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package session reads commands line by line, runs them and writes their
// output and status.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	engine "github.com/ynnekF/sqlite-engine"
	"github.com/ynnekF/sqlite-engine/command"
	"github.com/ynnekF/sqlite-engine/executor"
	"github.com/ynnekF/sqlite-engine/internal/logger"
)

// MaxLineSize bounds the length of an input line.
const MaxLineSize = 1 << 20

// Executor runs commands. *executor.Executor implements it.
type Executor interface {
	Execute(command.Command) (executor.Result, error)
	Flush() error
}

// Options configures a Session.
type Options struct {
	// Prompt is written before reading each line. Empty disables it.
	Prompt string
	Log    logrus.FieldLogger
}

// Session is one run of the shell over an input stream.
type Session struct {
	exec   Executor
	in     *bufio.Reader
	out    io.Writer
	prompt string
	log    logrus.FieldLogger
	werr   error
}

// New returns a session reading commands from in and writing to out.
func New(exec Executor, in io.Reader, out io.Writer, opt Options) *Session {
	log := opt.Log
	if log == nil {
		log = logger.Discard()
	}
	return &Session{
		exec:   exec,
		in:     bufio.NewReader(in),
		out:    out,
		prompt: opt.Prompt,
		log:    log,
	}
}

// Run processes lines until .exit, the end of input, a storage error or the
// cancellation of ctx. Command errors are reported and the session goes on;
// storage errors are returned. The table is flushed at the end of input.
func (s *Session) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.prompt != "" {
			s.write(s.prompt)
		}
		text, err := s.readLine()
		if err == io.EOF {
			s.log.Debug("end of input")
			if err = s.exec.Flush(); err != nil {
				return err
			}
			return s.werr
		}
		if errors.Is(err, engine.ErrCommandSizing) {
			s.report(err)
			continue
		}
		if err != nil {
			return errors.Wrap(engine.ErrIO, err.Error())
		}

		line := strings.TrimSpace(text)
		if line == "" {
			continue
		}
		exit, err := s.handle(line)
		if err != nil {
			return err
		}
		if s.werr != nil {
			return s.werr
		}
		if exit {
			return nil
		}
	}
}

// readLine returns the next line without its line ending. A line longer
// than MaxLineSize is consumed up to its end and reported as a sizing error.
func (s *Session) readLine() (string, error) {
	var line []byte
	long := false
	for {
		part, more, err := s.in.ReadLine()
		if err != nil {
			if err == io.EOF && (len(line) > 0 || long) {
				break
			}
			return "", err
		}
		if !long && len(line)+len(part) > MaxLineSize {
			long, line = true, nil
		}
		if !long {
			line = append(line, part...)
		}
		if !more {
			break
		}
	}
	if long {
		return "", errors.Wrapf(engine.ErrCommandSizing, "line longer than %d bytes", MaxLineSize)
	}
	return string(line), nil
}

func (s *Session) handle(line string) (exit bool, err error) {
	s.log.WithField("line", line).Debug("received command")

	cmd, err := command.Parse(line)
	if err != nil {
		s.report(err)
		return false, nil
	}
	if st, ok := cmd.(command.Statement); ok {
		s.writeln("handling command: " + st.Type.String())
	}

	res, err := s.exec.Execute(cmd)
	if err != nil {
		if engine.Fatal(err) {
			s.log.WithError(err).Error("storage failure")
			return false, err
		}
		s.report(err)
		return false, nil
	}
	for _, line := range res.Lines {
		s.writeln(line)
	}
	return res.Exit, nil
}

func (s *Session) report(err error) {
	s.log.WithError(err).Debug("command failed")
	s.writeln(Status(err))
}

// Status renders a command error as "<kind>: <detail>".
func Status(err error) string {
	kind := engine.Kind(err)
	if kind == nil {
		return err.Error()
	}
	msg := err.Error()
	detail := strings.TrimSuffix(msg, ": "+kind.Error())
	if detail == msg {
		return msg
	}
	return kind.Error() + ": " + detail
}

func (s *Session) write(text string) {
	if s.werr == nil {
		_, s.werr = io.WriteString(s.out, text)
	}
}

func (s *Session) writeln(line string) {
	if s.werr == nil {
		_, s.werr = fmt.Fprintln(s.out, line)
	}
}
