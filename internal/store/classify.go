package store

import (
	"context"
	"errors"
	"io"
	"net"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
	"github.com/otakuparshva/ai-recruitment/internal/retry"
)

// Server error codes that indicate a topology change or an interrupted connection.
var transientCodes = map[int]struct{}{
	6:     {}, // HostUnreachable
	7:     {}, // HostNotFound
	89:    {}, // NetworkTimeout
	91:    {}, // ShutdownInProgress
	189:   {}, // PrimarySteppedDown
	9001:  {}, // SocketException
	10107: {}, // NotWritablePrimary
	11600: {}, // InterruptedAtShutdown
	11602: {}, // InterruptedDueToReplStateChange
	13435: {}, // NotPrimaryNoSecondaryOk
	13436: {}, // NotPrimaryOrSecondary
}

var transientLabels = []string{"NetworkError", "RetryableWriteError", "TransientTransactionError"}

// Classify separates transient store failures from fatal ones.
// Uniqueness violations, validation and logic errors are fatal.
func Classify(err error) retry.Class {
	if err == nil {
		return retry.Fatal
	}
	if IsDuplicateKey(err) {
		return retry.Fatal
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return retry.Fatal
	}
	if errors.Is(err, ErrClosed) || errors.Is(err, context.Canceled) {
		return retry.Fatal
	}

	if errors.Is(err, mongo.ErrClientDisconnected) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		mongo.IsNetworkError(err) ||
		mongo.IsTimeout(err) {
		return retry.Transient
	}

	var sse topology.ServerSelectionError
	if errors.As(err, &sse) {
		return retry.Transient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return retry.Transient
	}

	var se mongo.ServerError
	if errors.As(err, &se) {
		for _, label := range transientLabels {
			if se.HasErrorLabel(label) {
				return retry.Transient
			}
		}
		for code := range transientCodes {
			if se.HasErrorCode(code) {
				return retry.Transient
			}
		}
	}
	return retry.Fatal
}

// IsDuplicateKey reports a uniqueness constraint violation.
func IsDuplicateKey(err error) bool {
	return err != nil && mongo.IsDuplicateKeyError(err)
}
