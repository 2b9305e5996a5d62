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

// Command olt-core wires every component of the OLT Edge Core into a
// running process: config, cluster-replicated state, the Reconciler, the
// Device Event Pump, the Ownership Hasher and a minimal HTTP surface: a
// liveness probe plus the Public Service's read queries and its
// provision/remove/purge calls.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"
	"github.com/google/uuid"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/opencord/olt-edge-core/internal/clustersvc"
	"github.com/opencord/olt-edge-core/internal/common"
	"github.com/opencord/olt-edge-core/internal/core/events"
	"github.com/opencord/olt-edge-core/internal/core/eventpump"
	"github.com/opencord/olt-edge-core/internal/core/meters"
	"github.com/opencord/olt-edge-core/internal/core/model"
	"github.com/opencord/olt-edge-core/internal/core/ownership"
	"github.com/opencord/olt-edge-core/internal/core/reconciler"
	"github.com/opencord/olt-edge-core/internal/core/service"
	"github.com/opencord/olt-edge-core/internal/core/statestore"
	"github.com/opencord/olt-edge-core/internal/hostinfo"
	"github.com/opencord/olt-edge-core/internal/platform/clustermap"
	"github.com/opencord/olt-edge-core/internal/southbound/mock"
	"github.com/opencord/olt-edge-core/internal/subscriberinfo"
)

var mainLogger = common.Logger("main")

type options struct {
	ConfigPath string `short:"c" long:"config" description:"path to a YAML config file" default:""`
	NodeID     string `long:"node-id" description:"this instance's cluster node id (default: a random uuid)"`
	HTTPAddr   string `long:"http-addr" description:"address for the health/query HTTP server" default:":8080"`
	Mock       bool   `long:"mock" description:"use in-memory cluster maps and a mock southbound driver instead of Redis/real hardware"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	cfg, err := common.LoadConfig(opts.ConfigPath)
	if err != nil {
		mainLogger.WithFields(log.Fields{"error": err}).Fatal("failed to load config")
	}
	common.SetLogLevel(cfg.LogLevel)

	nodeID := opts.NodeID
	if nodeID == "" {
		nodeID = uuid.New().String()
	}

	statusMap, provisionedMap, bindingsMap := buildClusterMaps(opts, cfg)

	store := statestore.New(statusMap, provisionedMap)

	pendingTTL, err := time.ParseDuration(cfg.MeterPendingTTL)
	if err != nil {
		pendingTTL = 30 * time.Second
	}
	meterCache := meters.New(bindingsMap, pendingTTL)

	subs := subscriberinfo.NewFake()
	hosts := hostinfo.NewFake()

	sink := buildEventSink(cfg)

	driver := mock.New()
	if !opts.Mock {
		mainLogger.Warn("no production southbound driver is wired in this build; falling back to the mock driver")
	}

	membership := clustersvc.NewFake(nodeID)
	hasher := ownership.New(membership)

	reconcilerCfg := reconciler.Config{
		EnableEapol:          cfg.EnableEapol,
		EnableDhcpOnNni:      cfg.EnableDhcpOnNni,
		EnableDhcpV4:         cfg.EnableDhcpV4,
		EnableDhcpV6:         cfg.EnableDhcpV6,
		EnableIgmpOnNni:      cfg.EnableIgmpOnNni,
		EnablePppoe:          cfg.EnablePppoe,
		DefaultTechProfileID: int32(cfg.DefaultTechProfileId),
		WaitForRemoval:       cfg.WaitForRemoval,
		DefaultBpID:          cfg.DefaultBpId,
		MulticastServiceName: cfg.MulticastServiceName,
		Workers:              cfg.ReconcilerWorkers,
	}

	pump := eventpump.New(hasher, nil, sink, 256)
	rec := reconciler.New(reconcilerCfg, meterCache, store, subs, hosts, driver, sink, pump.Devices())
	pump.AttachReconciler(rec)

	svc := service.New(rec, store, hasher, pump, pump)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pump.Run(ctx)

	server := &http.Server{Addr: opts.HTTPAddr, Handler: buildRouter(svc)}
	go func() {
		mainLogger.WithFields(log.Fields{"addr": opts.HTTPAddr}).Info("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			mainLogger.WithFields(log.Fields{"error": err}).Error("HTTP server stopped")
		}
	}()

	mainLogger.WithFields(log.Fields{"node": nodeID}).Info("olt-core started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	mainLogger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}

func buildClusterMaps(opts options, cfg common.Config) (status, provisioned, bindings clustermap.Map) {
	if opts.Mock || cfg.RedisAddr == "" {
		return clustermap.NewMemory(), clustermap.NewMemory(), clustermap.NewMemory()
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return clustermap.NewRedis(client, "volt-cp-status"),
		clustermap.NewRedis(client, "volt-provisioned-subscriber"),
		clustermap.NewRedis(client, "volt-pending-eapol")
}

func buildEventSink(cfg common.Config) events.Sink {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NopSink{}
	}
	producer, err := events.NewAsyncProducer(cfg.KafkaBrokers)
	if err != nil {
		mainLogger.WithFields(log.Fields{"error": err}).Warn("failed to build Kafka producer, falling back to a no-op event sink")
		return events.NopSink{}
	}
	return events.NewKafkaSink(producer, cfg.EventsTopic)
}

// buildRouter exposes a liveness probe, the Public Service's read queries
// and its provision/remove/purge calls over HTTP, using gorilla/mux the way the teacher's API surface
// routes its REST endpoints.
func buildRouter(svc service.OltService) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/subscribers", func(w http.ResponseWriter, req *http.Request) {
		keys, err := svc.ListProgrammedSubscribers(req.Context())
		writeJSON(w, keys, err)
	}).Methods(http.MethodGet)

	r.HandleFunc("/connect-points", func(w http.ResponseWriter, req *http.Request) {
		statuses, err := svc.ListConnectPointStatus(req.Context())
		writeJSON(w, statuses, err)
	}).Methods(http.MethodGet)

	r.HandleFunc("/olts", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, svc.ListOlts(), nil)
	}).Methods(http.MethodGet)

	r.HandleFunc("/subscribers/provision", func(w http.ResponseWriter, req *http.Request) {
		var body subscriberRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err := provisionOrRemove(req.Context(), svc, body, true)
		writeJSON(w, struct{ OK bool }{err == nil}, err)
	}).Methods(http.MethodPost)

	r.HandleFunc("/subscribers/remove", func(w http.ResponseWriter, req *http.Request) {
		var body subscriberRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err := provisionOrRemove(req.Context(), svc, body, false)
		writeJSON(w, struct{ OK bool }{err == nil}, err)
	}).Methods(http.MethodPost)

	r.HandleFunc("/olts/{deviceId}/purge", func(w http.ResponseWriter, req *http.Request) {
		deviceID := model.DeviceID(mux.Vars(req)["deviceId"])
		err := svc.PurgeDevice(deviceID)
		writeJSON(w, struct{ OK bool }{err == nil}, err)
	}).Methods(http.MethodPost)

	return r
}

// subscriberRequest is the JSON body oltctl sends for provision/remove: a
// connect point (DeviceID+PortNumber) to act on every configured service,
// or a SubscriberID plus service tags to act on exactly one.
type subscriberRequest struct {
	DeviceID     string `json:"deviceId,omitempty"`
	PortNumber   uint32 `json:"portNumber,omitempty"`
	SubscriberID string `json:"subscriberId,omitempty"`
	STag         int32  `json:"sTag,omitempty"`
	CTag         int32  `json:"cTag,omitempty"`
	TpID         int32  `json:"tpId,omitempty"`
}

func provisionOrRemove(ctx context.Context, svc service.OltService, body subscriberRequest, provision bool) error {
	if body.SubscriberID != "" {
		if provision {
			return svc.ProvisionSubscriberService(ctx, body.SubscriberID, model.VlanID(body.STag), model.VlanID(body.CTag), body.TpID)
		}
		return svc.RemoveSubscriberService(ctx, body.SubscriberID, model.VlanID(body.STag), model.VlanID(body.CTag))
	}
	cp := model.ConnectPoint{DeviceID: model.DeviceID(body.DeviceID), PortNumber: body.PortNumber}
	if provision {
		return svc.ProvisionSubscriberAtConnectPoint(ctx, cp)
	}
	return svc.RemoveSubscriberAtConnectPoint(ctx, cp)
}

func writeJSON(w http.ResponseWriter, v interface{}, err error) {
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if encodeErr := json.NewEncoder(w).Encode(v); encodeErr != nil {
		mainLogger.WithFields(log.Fields{"error": encodeErr}).Error("failed to encode response")
	}
}
