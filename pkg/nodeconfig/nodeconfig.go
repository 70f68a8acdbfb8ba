// Package nodeconfig loads a static description of a node's wire
// surface (its own NodeId, CAN channel, and the subjects it publishes
// and services it calls as a client) from an INI file. Subscriptions
// and served services are not part of the schema. It uses the same
// library and the same "parse a static description of a node" job as
// the teacher's object-dictionary loader, with a UAVCAN-shaped schema
// instead of an EDS/DCF one.
package nodeconfig

import (
	"fmt"
	"time"

	"github.com/fleetwire/uavcan"
	"gopkg.in/ini.v1"
)

// Publication describes one subject a node publishes.
type Publication struct {
	Name     string
	Subject  uavcan.SubjectId
	Priority uavcan.Priority
	Timeout  time.Duration
}

// Request describes one service a node calls as a client.
type Request struct {
	Name        string
	Service     uavcan.ServiceId
	Priority    uavcan.Priority
	Timeout     time.Duration
	ResponseMax int
}

// Config is a node's static wire-surface description.
type Config struct {
	NodeId    uavcan.NodeId
	Interface string
	Channel   string
	Bitrate   int
	Publish   []Publication
	Request   []Request
}

// Load parses path, an INI file with a [node] section and any number
// of [publish.<name>] / [request.<name>] sections.
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("nodeconfig: loading %s: %w", path, err)
	}

	node := file.Section("node")
	nodeId, err := node.Key("node_id").Int()
	if err != nil {
		return nil, fmt.Errorf("nodeconfig: [node] node_id: %w", err)
	}
	if nodeId < 0 || nodeId > int(uavcan.MaxNodeId) {
		return nil, fmt.Errorf("nodeconfig: node_id %d out of range", nodeId)
	}

	cfg := &Config{
		NodeId:    uavcan.NodeId(nodeId),
		Interface: node.Key("interface").MustString("socketcan"),
		Channel:   node.Key("channel").MustString("can0"),
		Bitrate:   node.Key("bitrate").MustInt(1_000_000),
	}

	for _, section := range file.Sections() {
		name := section.Name()
		switch {
		case len(name) > len("publish.") && name[:len("publish.")] == "publish.":
			pub, err := parsePublication(name[len("publish."):], section)
			if err != nil {
				return nil, err
			}
			cfg.Publish = append(cfg.Publish, pub)
		case len(name) > len("request.") && name[:len("request.")] == "request.":
			req, err := parseRequest(name[len("request."):], section)
			if err != nil {
				return nil, err
			}
			cfg.Request = append(cfg.Request, req)
		}
	}

	return cfg, nil
}

func parsePublication(name string, section *ini.Section) (Publication, error) {
	subject, err := section.Key("subject").Int()
	if err != nil {
		return Publication{}, fmt.Errorf("nodeconfig: [publish %q] subject: %w", name, err)
	}
	priority := section.Key("priority").MustInt(int(uavcan.PriorityNominal))
	timeoutMs := section.Key("timeout_ms").MustInt(1000)
	return Publication{
		Name:     name,
		Subject:  uavcan.SubjectId(subject),
		Priority: uavcan.Priority(priority),
		Timeout:  time.Duration(timeoutMs) * time.Millisecond,
	}, nil
}

func parseRequest(name string, section *ini.Section) (Request, error) {
	service, err := section.Key("service").Int()
	if err != nil {
		return Request{}, fmt.Errorf("nodeconfig: [request %q] service: %w", name, err)
	}
	priority := section.Key("priority").MustInt(int(uavcan.PriorityNominal))
	timeoutMs := section.Key("timeout_ms").MustInt(1000)
	responseMax := section.Key("response_max").MustInt(64)
	return Request{
		Name:        name,
		Service:     uavcan.ServiceId(service),
		Priority:    uavcan.Priority(priority),
		Timeout:     time.Duration(timeoutMs) * time.Millisecond,
		ResponseMax: responseMax,
	}, nil
}
