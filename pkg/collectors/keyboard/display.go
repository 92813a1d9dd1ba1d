package keyboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// rulesAtomName is the root-window property where the XKB configuration
// (rules, model, layout, variant, options) is published by the server and
// setxkbmap.
const rulesAtomName = "_XKB_RULES_NAMES"

// maxPropertyWords bounds the property read (in 32-bit units).
const maxPropertyWords = 256

// ErrNoRulesNames reports that the root window carries no XKB rules property.
var ErrNoRulesNames = errors.New("no " + rulesAtomName + " on root window")

// Display is the long-lived X11 connection. It is opened once at startup,
// read by the keyboard probe every cycle, and closed at shutdown.
type Display struct {
	conn *xgb.Conn
	root xproto.Window

	mu        sync.Mutex
	rulesAtom xproto.Atom
	closed    bool
}

// Open connects to the named display. An empty name uses $DISPLAY.
func Open(name string) (*Display, error) {
	conn, err := xgb.NewConnDisplay(name)
	if err != nil {
		return nil, fmt.Errorf("open display %q: %w", name, err)
	}
	screen := xproto.Setup(conn).DefaultScreen(conn)
	return &Display{conn: conn, root: screen.Root}, nil
}

// Close releases the connection. It is safe to call more than once.
func (d *Display) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.conn.Close()
	return nil
}

// LayoutSymbols returns the layout and variant fields of _XKB_RULES_NAMES
// joined as "layout:variant" (e.g. "us,se:,nodeadkeys").
func (d *Display) LayoutSymbols(ctx context.Context) (string, error) {
	raw, err := d.rulesNames(ctx)
	if err != nil {
		return "", err
	}
	names := ParseRulesNames(raw)
	if names.Variant == "" {
		return names.Layout, nil
	}
	return names.Layout + ":" + names.Variant, nil
}

func (d *Display) rulesNames(ctx context.Context) ([]byte, error) {
	atom, err := d.atom(ctx)
	if err != nil {
		return nil, err
	}

	type result struct {
		reply *xproto.GetPropertyReply
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		reply, err := xproto.GetProperty(d.conn, false, d.root, atom,
			xproto.AtomString, 0, maxPropertyWords).Reply()
		ch <- result{reply, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("get %s: %w", rulesAtomName, r.err)
		}
		if r.reply == nil || r.reply.ValueLen == 0 {
			return nil, ErrNoRulesNames
		}
		return r.reply.Value, nil
	}
}

// atom interns the rules atom lazily; it may not exist until the server or
// setxkbmap publishes it.
func (d *Display) atom(ctx context.Context) (xproto.Atom, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, errors.New("display closed")
	}
	if d.rulesAtom != 0 {
		return d.rulesAtom, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	reply, err := xproto.InternAtom(d.conn, true, uint16(len(rulesAtomName)), rulesAtomName).Reply()
	if err != nil {
		return 0, fmt.Errorf("intern %s: %w", rulesAtomName, err)
	}
	if reply == nil || reply.Atom == 0 {
		return 0, ErrNoRulesNames
	}
	d.rulesAtom = reply.Atom
	return d.rulesAtom, nil
}
