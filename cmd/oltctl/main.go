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

// Command oltctl is a thin CLI over olt-core's Public Service HTTP surface:
// list-subscribers, list-connect-points, list-olts, provision, remove and
// purge. It demonstrates the Public Service contract end to end; it is
// explicitly outside the core's invariants (spec.md §1 Non-goals: "the CLI
// and REST surface" is an external concern).
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	flags "github.com/jessevdk/go-flags"
	"github.com/olekukonko/tablewriter"
)

type globalOptions struct {
	Addr string `long:"addr" description:"olt-core HTTP address" default:"http://127.0.0.1:8080"`
}

var global globalOptions

type listSubscribersCmd struct{}
type listConnectPointsCmd struct{}
type listOltsCmd struct{}

type provisionCmd struct {
	DeviceID     string `long:"device-id" description:"OLT device id, with --port-number"`
	PortNumber   uint32 `long:"port-number" description:"UNI port number, with --device-id"`
	SubscriberID string `long:"subscriber-id" description:"subscriber's portName, with --s-tag/--c-tag/--tp-id"`
	STag         int32  `long:"s-tag" default:"-2"`
	CTag         int32  `long:"c-tag" default:"-2"`
	TpID         int32  `long:"tp-id" default:"-1"`
}

type removeCmd struct {
	DeviceID     string `long:"device-id"`
	PortNumber   uint32 `long:"port-number"`
	SubscriberID string `long:"subscriber-id"`
	STag         int32  `long:"s-tag" default:"-2"`
	CTag         int32  `long:"c-tag" default:"-2"`
}

type purgeCmd struct {
	DeviceID string `long:"device-id" required:"true"`
}

func (c *listSubscribersCmd) Execute(_ []string) error {
	var keys []map[string]interface{}
	if err := getJSON("/subscribers", &keys); err != nil {
		return err
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Device", "Port", "PortName", "CTag", "STag", "TpId"})
	for _, k := range keys {
		table.Append([]string{
			fmt.Sprint(k["PortDeviceID"]), fmt.Sprint(k["PortNumber"]), fmt.Sprint(k["PortName"]),
			fmt.Sprint(k["PonCTag"]), fmt.Sprint(k["PonSTag"]), fmt.Sprint(k["TechnologyProfileId"]),
		})
	}
	table.Render()
	return nil
}

func (c *listConnectPointsCmd) Execute(_ []string) error {
	var rows []map[string]interface{}
	if err := getJSON("/connect-points", &rows); err != nil {
		return err
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Device", "Port", "PortName", "DefaultEapol", "SubscriberFlows", "Dhcp"})
	for _, r := range rows {
		key, _ := r["Key"].(map[string]interface{})
		status, _ := r["Status"].(map[string]interface{})
		table.Append([]string{
			fmt.Sprint(key["PortDeviceID"]), fmt.Sprint(key["PortNumber"]), fmt.Sprint(key["PortName"]),
			fmt.Sprint(status["DefaultEapolStatus"]), fmt.Sprint(status["SubscriberFlowsStatus"]), fmt.Sprint(status["DhcpStatus"]),
		})
	}
	table.Render()
	return nil
}

func (c *listOltsCmd) Execute(_ []string) error {
	var devices []map[string]interface{}
	if err := getJSON("/olts", &devices); err != nil {
		return err
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "SerialNumber", "UplinkPort"})
	for _, d := range devices {
		table.Append([]string{fmt.Sprint(d["ID"]), fmt.Sprint(d["SerialNumber"]), fmt.Sprint(d["UplinkPort"])})
	}
	table.Render()
	return nil
}

func (c *provisionCmd) Execute(_ []string) error {
	return postSubscriberRequest("/subscribers/provision", c.DeviceID, c.PortNumber, c.SubscriberID, c.STag, c.CTag, c.TpID)
}

func (c *removeCmd) Execute(_ []string) error {
	return postSubscriberRequest("/subscribers/remove", c.DeviceID, c.PortNumber, c.SubscriberID, c.STag, c.CTag, 0)
}

func (c *purgeCmd) Execute(_ []string) error {
	resp, err := http.Post(global.Addr+"/olts/"+c.DeviceID+"/purge", "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("purge failed: %s", resp.Status)
	}
	fmt.Println("purged", c.DeviceID)
	return nil
}

func postSubscriberRequest(path, deviceID string, portNumber uint32, subscriberID string, sTag, cTag, tpID int32) error {
	body := map[string]interface{}{
		"deviceId": deviceID, "portNumber": portNumber,
		"subscriberId": subscriberID, "sTag": sTag, "cTag": cTag, "tpId": tpID,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(global.Addr+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed: %s", resp.Status)
	}
	fmt.Println("ok")
	return nil
}

func getJSON(path string, out interface{}) error {
	resp, err := http.Get(global.Addr + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func main() {
	parser := flags.NewParser(&global, flags.Default)
	_, _ = parser.AddCommand("list-subscribers", "list every provisioned subscriber", "", &listSubscribersCmd{})
	_, _ = parser.AddCommand("list-connect-points", "list connect-point flow status", "", &listConnectPointsCmd{})
	_, _ = parser.AddCommand("list-olts", "list tracked OLTs", "", &listOltsCmd{})
	_, _ = parser.AddCommand("provision", "provision a subscriber", "", &provisionCmd{})
	_, _ = parser.AddCommand("remove", "remove a subscriber", "", &removeCmd{})
	_, _ = parser.AddCommand("purge", "purge a device", "", &purgeCmd{})

	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
