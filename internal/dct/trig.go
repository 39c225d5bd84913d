package dct

import "github.com/cwbudde/spectrice/internal/trig"

func trigTable(n int) *trig.Table {
	return trig.Get(n)
}
