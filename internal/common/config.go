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

package common

import (
	"os"

	"gopkg.in/yaml.v2"
)

// Config holds every configuration knob named in the spec, with the exact
// defaults it documents. A YAML file (if any) is decoded over Defaults():
// "load what's given, fill the rest with defaults" — every key present in
// the file wins, including false and zero values, and absent keys keep
// their default.
type Config struct {
	EnableDhcpOnNni   bool   `yaml:"enableDhcpOnNni"`
	EnableDhcpV4      bool   `yaml:"enableDhcpV4"`
	EnableDhcpV6      bool   `yaml:"enableDhcpV6"`
	EnableIgmpOnNni   bool   `yaml:"enableIgmpOnNni"`
	EnableEapol       bool   `yaml:"enableEapol"`
	EnablePppoe       bool   `yaml:"enablePppoe"`
	DefaultTechProfileId int  `yaml:"defaultTechProfileId"`
	WaitForRemoval    bool   `yaml:"waitForRemoval"`
	DefaultBpId       string `yaml:"defaultBpId"`
	MulticastServiceName string `yaml:"multicastServiceName"`

	// Ambient knobs, not named by the spec's table but required to run
	// the ambient stack (worker pool size, cache TTLs, log level, etc).
	ReconcilerWorkers   int    `yaml:"reconcilerWorkers"`
	MeterPendingTTL     string `yaml:"meterPendingTTL"`
	MacLearningTimeout  string `yaml:"macLearningTimeout"`
	LogLevel            string `yaml:"logLevel"`
	RedisAddr           string `yaml:"redisAddr"`
	KafkaBrokers        []string `yaml:"kafkaBrokers"`
	EventsTopic         string `yaml:"eventsTopic"`
}

// Defaults returns the configuration exactly as documented in spec.md §6.
func Defaults() Config {
	return Config{
		EnableDhcpOnNni:      true,
		EnableDhcpV4:         true,
		EnableDhcpV6:         false,
		EnableIgmpOnNni:      false,
		EnableEapol:          true,
		EnablePppoe:          false,
		DefaultTechProfileId: 64,
		WaitForRemoval:       true,
		DefaultBpId:          "Default",
		MulticastServiceName: "multicastServiceName",

		ReconcilerWorkers:  4,
		MeterPendingTTL:    "30s",
		MacLearningTimeout: "60s",
		LogLevel:           "info",
		RedisAddr:          "127.0.0.1:6379",
		EventsTopic:        "olt-edge-core.events",
	}
}

// LoadConfig reads path (if non-empty) as YAML decoded over Defaults();
// a missing or empty path just returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Defaults(), err
	}

	return cfg, nil
}
