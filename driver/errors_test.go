package driver

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKindsAreDistinguishable(t *testing.T) {
	transport := TransportError("imap.dial", "connection refused", errors.New("dial tcp: refused"))
	notFound := NotFoundError("imap.get", "message 42 not found")
	protocol := ProtocolError("imap.select", "no such mailbox", errors.New("NO [NONEXISTENT]"))

	assert.ErrorIs(t, transport, ErrTransport)
	assert.NotErrorIs(t, transport, ErrNotFound)

	assert.ErrorIs(t, notFound, ErrNotFound)
	assert.NotErrorIs(t, notFound, ErrProtocol)

	assert.ErrorIs(t, protocol, ErrProtocol)
	assert.NotErrorIs(t, protocol, ErrTransport)
}

func TestErrorPreservesBackendText(t *testing.T) {
	backend := errors.New("NO [ALERT] mailbox quota exceeded")
	err := ProtocolError("imap.append", "append rejected", backend)

	assert.Contains(t, err.Error(), "mailbox quota exceeded")
	assert.ErrorIs(t, err, backend)
}

func TestErrorThroughWrapping(t *testing.T) {
	inner := ConfigError("imap.dial", "missing credentials", nil)
	wrapped := fmt.Errorf("list operation: %w", inner)

	assert.ErrorIs(t, wrapped, ErrConfig)

	var de *Error
	require.True(t, errors.As(wrapped, &de))
	assert.Equal(t, KindConfig, de.Kind)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFoundError("op", "gone")))
	assert.Equal(t, KindUnsupported, KindOf(UnsupportedError("op", "nope")))

	// Raw transport-layer errors are classified as transport.
	assert.Equal(t, KindTransport, KindOf(errors.New("i/o timeout")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "config", KindConfig.String())
	assert.Equal(t, "unsupported", KindUnsupported.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestErrorMessageShape(t *testing.T) {
	err := ProtocolError("imap.search", "search rejected", errors.New("BAD syntax"))
	assert.Equal(t, "imap.search: search rejected: BAD syntax", err.Error())

	bare := NotFoundError("", "draft missing")
	assert.Equal(t, "draft missing", bare.Error())
}
