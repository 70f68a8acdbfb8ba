// Package node implements the UAVCAN/CAN v1 application-facing
// dispatcher: Publisher, AnonymousPublisher, Requester, Responder and
// the Node that ties them to a Receiver/Transmitter pair.
package node

import "errors"

// Sentinel errors shared across the package.
var (
	// ErrDuplicateKey is returned by StartPublishingTopic /
	// StartSendingRequests when a subject/service is already
	// registered.
	ErrDuplicateKey = errors.New("node: key already registered")
	// ErrPayloadTooLarge is returned by AnonymousPublisher.Publish
	// when the payload would require more than one CAN frame.
	ErrPayloadTooLarge = errors.New("node: anonymous payload requires more than one frame")
	// ErrUnknownPublisher / ErrUnknownRequester are the values
	// Node.PublishToTopic / Node.SendRequest panic with when a token
	// refers to a subject/service that is not registered.
	ErrUnknownPublisher = errors.New("node: publish token refers to an unregistered subject")
	ErrUnknownRequester = errors.New("node: request token refers to an unregistered service")
)
