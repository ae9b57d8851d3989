package web

import _ "embed"

//go:embed index.html
var page []byte

// Page returns the chat page served at "/". The slice is shared; callers
// must not modify it.
func Page() []byte {
	return page
}
