package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassified(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network unreachable", errors.New("dial tcp: connect: network is unreachable"), true},
		{"no route to host", errors.New("connect: no route to host"), true},
		{"connection refused", errors.New("dial tcp 203.0.113.7:5432: connect: connection refused"), true},
		{"timeout", errors.New("dial tcp: i/o timeout"), true},
		{"ipv6 literal", errors.New("dial tcp [2406:da18:4fd:9900::1]:5432: connect: cannot assign requested address"), true},
		{"ipv6 link local", errors.New("dial tcp [fe80::1%eth0]:5432: connect failed"), true},
		{"auth failure", errors.New(`password authentication failed for user "collector"`), false},
		{"syntax error", errors.New(`pq: syntax error at or near "SELEC"`), false},
		{"wrapped classified", fmt.Errorf("open pool: %w", errors.New("connection timed out")), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classified(tt.err))
		})
	}
}
