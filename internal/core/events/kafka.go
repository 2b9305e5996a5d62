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

package events

import (
	"encoding/json"

	"github.com/Shopify/sarama"
	log "github.com/sirupsen/logrus"
)

var eventsLogger = log.WithFields(log.Fields{"module": "event-sink"})

// KafkaSink publishes AccessDeviceEvents onto a Kafka topic via an
// AsyncProducer, matching the teacher's Sarama-based event publishing.
type KafkaSink struct {
	producer sarama.AsyncProducer
	topic    string
}

// NewKafkaSink builds a KafkaSink over an already-configured
// sarama.AsyncProducer. It starts a background goroutine draining the
// producer's Errors() channel so a publish failure is logged instead of
// deadlocking the producer.
func NewKafkaSink(producer sarama.AsyncProducer, topic string) *KafkaSink {
	s := &KafkaSink{producer: producer, topic: topic}
	go s.drainErrors()
	return s
}

func (s *KafkaSink) drainErrors() {
	for err := range s.producer.Errors() {
		eventsLogger.WithFields(log.Fields{"error": err.Err}).Error("failed to publish event")
	}
}

func (s *KafkaSink) Emit(e AccessDeviceEvent) {
	payload, err := json.Marshal(e)
	if err != nil {
		eventsLogger.WithFields(log.Fields{"error": err}).Error("failed to marshal event")
		return
	}

	s.producer.Input() <- &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(e.DeviceID),
		Value: sarama.ByteEncoder(payload),
	}
}

// NewAsyncProducer builds a sarama.AsyncProducer with settings matching the
// teacher's Kafka client configuration style (idempotence off, default
// partitioner, return-successes disabled since KafkaSink is fire-and-forget
// and only watches Errors()).
func NewAsyncProducer(brokers []string) (sarama.AsyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Return.Successes = false
	cfg.Producer.Return.Errors = true

	return sarama.NewAsyncProducer(brokers, cfg)
}
