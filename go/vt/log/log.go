/*
Copyright 2026 The DB Router Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package log provides a thin adapter around glog so the rest of the
// router speaks one logging idiom regardless of which package is
// writing the line.
package log

import (
	"strconv"
	"sync/atomic"

	"github.com/golang/glog"
	"github.com/spf13/pflag"
)

// Flush ensures any pending I/O is written.
var Flush = glog.Flush

// Level is the glog verbosity level.
type Level = glog.Level

var (
	Infof     = glog.Infof
	Warningf  = glog.Warningf
	Errorf    = glog.Errorf
	Fatalf    = glog.Fatalf
	Info      = glog.Info
	Warning   = glog.Warning
	Error     = glog.Error
)

// RegisterFlags installs log flags on the given FlagSet.
func RegisterFlags(fs *pflag.FlagSet) {
	flagVal := &logRotateMaxSize{val: strconv.FormatUint(atomic.LoadUint64(&glog.MaxSize), 10)}
	fs.Var(flagVal, "log-rotate-max-size", "size in bytes at which logs are rotated (glog.MaxSize)")
}

// logRotateMaxSize implements pflag.Value and provides thread-safe
// access to glog.MaxSize.
type logRotateMaxSize struct {
	val string
}

func (l *logRotateMaxSize) Set(s string) error {
	maxSize, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	atomic.StoreUint64(&glog.MaxSize, maxSize)
	l.val = s
	return nil
}

func (l *logRotateMaxSize) String() string { return l.val }
func (l *logRotateMaxSize) Type() string   { return "uint64" }
