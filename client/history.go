package client

import (
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"solana-m/earn"
	"solana-m/ext"
	"solana-m/runtime"
)

var (
	initIdlOnce sync.Once
	initIdlErr  error
	// Map of event discriminators to event names
	eventNameMap map[[8]byte]string
)

// eventTypes allocates the payload type of each known event.
var eventTypes = map[string]func() interface{}{
	earn.EventIndexUpdate:         func() interface{} { return new(earn.IndexUpdate) },
	earn.EventRewardsClaim:        func() interface{} { return new(earn.RewardsClaim) },
	earn.EventEarnerAdded:         func() interface{} { return new(earn.EarnerAdded) },
	earn.EventEarnerRemoved:       func() interface{} { return new(earn.EarnerRemoved) },
	earn.EventClaimsComplete:      func() interface{} { return new(earn.ClaimsComplete) },
	ext.EventWrapped:              func() interface{} { return new(ext.Wrapped) },
	ext.EventUnwrapped:            func() interface{} { return new(ext.Unwrapped) },
	ext.EventMMintUpdated:         func() interface{} { return new(ext.MMintUpdated) },
	ext.EventFeesClaimed:          func() interface{} { return new(ext.FeesClaimed) },
	ext.EventWrapAuthorityUpdated: func() interface{} { return new(ext.WrapAuthorityUpdated) },
}

// Event is a decoded program event. Data points to one of the event structs
// of the earn or ext package.
type Event struct {
	Signature solana.Signature `json:"signature"`
	Slot      uint64           `json:"slot"`
	Program   solana.PublicKey `json:"program"`
	Name      string           `json:"name"`
	Data      interface{}      `json:"data"`
}

// initializeIDL builds the event map from the program IDLs once
func initializeIDL() error {
	initIdlOnce.Do(func() {
		eventNameMap = make(map[[8]byte]string)
		for _, idl := range []*IDL{EarnIDL(), ExtIDL()} {
			for _, event := range idl.Events {
				if _, ok := eventTypes[event.Name]; !ok {
					initIdlErr = fmt.Errorf("no payload type for event %s", event.Name)
					return
				}
				var disc [8]byte
				copy(disc[:], event.Discriminator)
				eventNameMap[disc] = event.Name
			}
		}
	})
	return initIdlErr
}

// DecodeEvents extracts the program events from a transaction receipt.
// Events of unknown programs are skipped.
func DecodeEvents(receipt *runtime.Receipt) ([]Event, error) {
	if err := initializeIDL(); err != nil {
		return nil, fmt.Errorf("failed to initialize IDL: %w", err)
	}
	if receipt == nil {
		return nil, nil
	}

	var (
		events []Event
		stack  []solana.PublicKey
	)
	for _, line := range receipt.Logs {
		if program, ok := parseInvoke(line); ok {
			stack = append(stack, program)
			continue
		}
		if strings.HasPrefix(line, "Program ") && (strings.HasSuffix(line, " success") || strings.Contains(line, " failed: ")) {
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		}
		if !strings.HasPrefix(line, "Program data: ") {
			continue
		}

		payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(line, "Program data: "))
		if err != nil {
			return nil, fmt.Errorf("failed to decode event payload: %w", err)
		}
		if len(payload) < runtime.DiscriminatorSize {
			continue
		}
		var disc [8]byte
		copy(disc[:], payload[:runtime.DiscriminatorSize])
		name, ok := eventNameMap[disc]
		if !ok {
			continue
		}
		data := eventTypes[name]()
		if err := bin.NewBorshDecoder(payload[runtime.DiscriminatorSize:]).Decode(data); err != nil {
			return nil, fmt.Errorf("failed to decode %s event: %w", name, err)
		}

		event := Event{
			Signature: receipt.Signature,
			Slot:      receipt.Slot,
			Name:      name,
			Data:      data,
		}
		if len(stack) > 0 {
			event.Program = stack[len(stack)-1]
		}
		events = append(events, event)
	}
	return events, nil
}

// parseInvoke matches "Program <id> invoke [n]".
func parseInvoke(line string) (solana.PublicKey, bool) {
	fields := strings.Fields(line)
	if len(fields) != 4 || fields[0] != "Program" || fields[2] != "invoke" {
		return solana.PublicKey{}, false
	}
	program, err := solana.PublicKeyFromBase58(fields[1])
	if err != nil {
		return solana.PublicKey{}, false
	}
	return program, true
}
