/*
 *  Copyright 2018 KardiaChain
 *  This file is part of the go-kardia library.
 *
 *  The go-kardia library is free software: you can redistribute it and/or modify
 *  it under the terms of the GNU Lesser General Public License as published by
 *  the Free Software Foundation, either version 3 of the License, or
 *  (at your option) any later version.
 *
 *  The go-kardia library is distributed in the hope that it will be useful,
 *  but WITHOUT ANY WARRANTY; without even the implied warranty of
 *  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 *  GNU Lesser General Public License for more details.
 *
 *  You should have received a copy of the GNU Lesser General Public License
 *  along with the go-kardia library. If not, see <http://www.gnu.org/licenses/>.
 */

// Package log wires the go-ethereum contextual logger used across the node.
package log

import (
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
)

type (
	Logger  = log.Logger
	Handler = log.Handler
	Lvl     = log.Lvl
)

// New returns a new logger with the given key/value context.
func New(ctx ...interface{}) Logger {
	return log.New(ctx...)
}

// Root returns the root logger.
func Root() Logger {
	return log.Root()
}

func Trace(msg string, ctx ...interface{}) { log.Root().Trace(msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { log.Root().Debug(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { log.Root().Info(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { log.Root().Warn(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { log.Root().Error(msg, ctx...) }

// Setup installs a level filtered terminal handler on the root logger.
func Setup(level string) error {
	return SetupWriter(os.Stderr, level)
}

// SetupWriter is Setup with an explicit output.
func SetupWriter(w io.Writer, level string) error {
	if strings.TrimSpace(level) == "" {
		level = "info"
	}
	lvl, err := log.LvlFromString(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}
	glogger := log.NewGlogHandler(log.StreamHandler(w, log.TerminalFormat(false)))
	glogger.Verbosity(lvl)
	log.Root().SetHandler(glogger)
	return nil
}
