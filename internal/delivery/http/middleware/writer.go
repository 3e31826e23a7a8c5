package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
)

// hijack forwards Hijack to the wrapped writer so websocket upgrades pass through.
func hijack(w http.ResponseWriter) (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("%T does not support hijacking", w)
	}
	return hj.Hijack()
}
