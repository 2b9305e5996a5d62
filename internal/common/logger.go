/*
 * Copyright 2018-2023 Open Networking Foundation (ONF) and the ONF Contributors

 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at

 * http://www.apache.org/licenses/LICENSE-2.0

 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package common holds ambient, cross-cutting pieces (logging, config)
// shared by every core component, mirroring the way bbsim's internal/common
// package is used from every device package.
package common

import (
	log "github.com/sirupsen/logrus"
)

// Logger returns a module-scoped logger, the same shape as bbsim's
// `oltLogger = log.WithFields(log.Fields{"module": "OLT"})` pattern used
// at the top of every device file.
func Logger(module string) *log.Entry {
	return log.WithFields(log.Fields{
		"module": module,
	})
}

// SetLogLevel parses and applies the configured log level, falling back to
// Info and logging a warning on a bad value instead of failing startup.
func SetLogLevel(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, defaulting to info")
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
}
