// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package pager

import (
	"github.com/sirupsen/logrus"

	"github.com/ynnekF/sqlite-engine/internal/logger"
)

// DefaultMaxPages bounds the file when the option does not.
const DefaultMaxPages = 100

type Option interface {
	MagicCode() [4]byte
	MaxPages() uint32
}

// Logger is implemented by options that carry a logger.
type Logger interface {
	Logger() logrus.FieldLogger
}

func getLogger(opt any) logrus.FieldLogger {
	if o, ok := opt.(Logger); ok {
		if log := o.Logger(); log != nil {
			return log
		}
	}
	return logger.Discard()
}

// Options is the plain Option implementation.
type Options struct {
	Magic [4]byte
	Limit uint32
	Log   logrus.FieldLogger
}

func (o Options) MagicCode() [4]byte {
	if o.Magic == [4]byte{} {
		return Magic
	}
	return o.Magic
}

func (o Options) MaxPages() uint32 {
	if o.Limit == 0 {
		return DefaultMaxPages
	}
	return o.Limit
}

func (o Options) Logger() logrus.FieldLogger { return o.Log }
