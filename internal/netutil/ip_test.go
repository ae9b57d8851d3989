package netutil

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalIP(t *testing.T) {
	ip := LocalIP()

	assert.NotEmpty(t, ip)
	assert.NotNil(t, net.ParseIP(ip))
	assert.Equal(t, ip, LocalIP())
}
