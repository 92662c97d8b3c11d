package chain

import (
	"bytes"
	"context"

	"github.com/mr-tron/base58"
)

// AccountSubscriber defines the Solana WebSocket program-subscription interface.
type AccountSubscriber interface {
	// SubscribeProgram subscribes to account changes owned by program that match filter.
	// The returned channel is closed on Unsubscribe, Close or connection loss.
	SubscribeProgram(ctx context.Context, program string, filter ProgramFilter) (int64, <-chan AccountNotification, error)

	// Unsubscribe cancels a subscription created by SubscribeProgram.
	Unsubscribe(ctx context.Context, subID int64) error

	// Close closes the WebSocket connection.
	Close() error
}

// ProgramFilter defines server-side filters for a program subscription.
type ProgramFilter struct {
	// DataSize matches accounts of exactly this many bytes. Zero disables the filter.
	DataSize uint64
	// Memcmp matches accounts whose bytes at Offset equal Bytes.
	Memcmp []Memcmp
}

// Memcmp is a memory-compare predicate on account data.
type Memcmp struct {
	Offset uint64
	Bytes  []byte
}

// Matches reports whether data passes every filter, the way the node applies them.
func (f ProgramFilter) Matches(data []byte) bool {
	if f.DataSize > 0 && uint64(len(data)) != f.DataSize {
		return false
	}
	for _, m := range f.Memcmp {
		end := m.Offset + uint64(len(m.Bytes))
		if end > uint64(len(data)) || !bytes.Equal(data[m.Offset:end], m.Bytes) {
			return false
		}
	}
	return true
}

// params renders the filter list in the JSON-RPC shape.
func (f ProgramFilter) params() []interface{} {
	var filters []interface{}
	if f.DataSize > 0 {
		filters = append(filters, map[string]interface{}{"dataSize": f.DataSize})
	}
	for _, m := range f.Memcmp {
		filters = append(filters, map[string]interface{}{
			"memcmp": map[string]interface{}{
				"offset": m.Offset,
				"bytes":  base58.Encode(m.Bytes),
			},
		})
	}
	return filters
}

// AccountNotification represents a programNotification message.
type AccountNotification struct {
	Pubkey   string
	Slot     int64
	Owner    string
	Lamports uint64
	Data     []byte
}
