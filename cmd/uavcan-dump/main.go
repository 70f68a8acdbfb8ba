// Command uavcan-dump opens a CAN interface, builds a node from a
// static nodeconfig file, and logs every reassembled transfer it
// sees. It is a diagnostic tool, not a library entry point.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/fleetwire/uavcan"
	"github.com/fleetwire/uavcan/pkg/can"
	_ "github.com/fleetwire/uavcan/pkg/can/socketcan"
	_ "github.com/fleetwire/uavcan/pkg/can/socketcanraw"
	_ "github.com/fleetwire/uavcan/pkg/can/virtual"
	"github.com/fleetwire/uavcan/pkg/node"
	"github.com/fleetwire/uavcan/pkg/nodeconfig"
)

type dumpHandler struct{}

func (dumpHandler) HandleMessage(now uavcan.Instant, header uavcan.TransferHeader, payload []byte) {
	log.WithFields(log.Fields{
		"subject": header.Subject,
		"source":  header.Source,
		"bytes":   len(payload),
	}).Info("message")
}

func (dumpHandler) HandleRequest(now uavcan.Instant, header uavcan.TransferHeader, payload []byte, token node.ResponseToken, responder *node.Responder) {
	log.WithFields(log.Fields{
		"service": header.Service,
		"client":  header.Source,
		"bytes":   len(payload),
	}).Info("request")
}

func (dumpHandler) HandleResponse(now uavcan.Instant, header uavcan.TransferHeader, payload []byte) {
	log.WithFields(log.Fields{
		"service": header.Service,
		"server":  header.Source,
		"bytes":   len(payload),
	}).Info("response")
}

type busHandler struct {
	n *node.Node
}

func (h busHandler) Handle(frame uavcan.Frame) {
	if err := h.n.AcceptFrame(frame); err != nil {
		log.WithError(err).Warn("accept_frame failed")
	}
}

func main() {
	configPath := flag.String("config", "", "path to a nodeconfig INI file")
	mtu := flag.Int("mtu", 8, "CAN frame data MTU (8 for classic CAN)")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "uavcan-dump: -config is required")
		os.Exit(2)
	}

	cfg, err := nodeconfig.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("loading node configuration")
	}

	bus, err := can.NewBus(cfg.Interface, cfg.Channel, cfg.Bitrate)
	if err != nil {
		log.WithError(err).Fatal("opening CAN interface")
	}

	n := node.New(cfg.NodeId, uavcan.SystemClock{}, bus, *mtu, nil, slog.Default(), dumpHandler{}, 16, 16)

	for _, pub := range cfg.Publish {
		if _, err := n.StartPublishingTopic(pub.Subject, pub.Priority, pub.Timeout); err != nil {
			log.WithError(err).WithField("subject", pub.Subject).Fatal("registering publication")
		}
	}
	for _, req := range cfg.Request {
		if _, err := n.StartSendingRequests(req.Service, req.Priority, req.Timeout, req.ResponseMax); err != nil {
			log.WithError(err).WithField("service", req.Service).Fatal("registering requester")
		}
	}

	if err := bus.Subscribe(busHandler{n: n}); err != nil {
		log.WithError(err).Fatal("subscribing to CAN bus")
	}
	if err := bus.Connect(); err != nil {
		log.WithError(err).Fatal("connecting to CAN bus")
	}
	defer bus.Disconnect()

	log.WithFields(log.Fields{
		"node_id":   cfg.NodeId,
		"interface": cfg.Interface,
		"channel":   cfg.Channel,
	}).Info("uavcan-dump running, press Ctrl+C to stop")

	select {}
}
