package tesmx_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comalice/tesmx"
)

func TestRoute(t *testing.T) {
	var got []string
	handlers := map[string]tesmx.CommandHandler[cmd]{
		"log": func(c cmd) error {
			got = append(got, c.Payload)
			return nil
		},
		"skip": nil,
	}

	lenient := tesmx.Route(handlers)
	require.NoError(t, lenient(logc("a")))
	require.NoError(t, lenient(cmd{Kind: "chime"}))
	require.NoError(t, lenient(cmd{Kind: "skip"}))
	require.Equal(t, []string{"a"}, got)

	strict := tesmx.Route(handlers, tesmx.Strict())
	require.NoError(t, strict(logc("b")))
	err := strict(cmd{Kind: "chime"})
	var ue *tesmx.UnknownCommandError
	require.ErrorAs(t, err, &ue)
	require.Equal(t, "chime", ue.Command)
	require.ErrorIs(t, err, tesmx.ErrUnknownCommand)
}

func TestRouteWithRuntime(t *testing.T) {
	rt := newPinger(t)
	var logged []string
	rt.AddHandler(tesmx.Route(map[string]tesmx.CommandHandler[cmd]{
		"log": func(c cmd) error {
			logged = append(logged, c.Payload)
			return nil
		},
	}))
	require.NoError(t, rt.Send(mk("ping")))
	require.Equal(t, []string{"init", "c1", "c2", "c3"}, logged)
}

type chime struct{ Volume int }

func (chime) Tag() string { return "chime" }

func TestHandle(t *testing.T) {
	var volume int
	h := tesmx.Handle[chime, tesmx.Tagged](func(c chime) error {
		volume = c.Volume
		return nil
	})
	require.NoError(t, h(chime{Volume: 7}))
	require.Equal(t, 7, volume)
	require.ErrorIs(t, h(knock{}), tesmx.ErrUnknownCommand)
}

func TestFold(t *testing.T) {
	rt := newPinger(t, tesmx.WithHistory(-1))
	fail := tesmx.Fold(rt.Send, func(err error) msg {
		return msg{Kind: "burst", Payload: "failed: " + err.Error()}
	})

	require.NoError(t, fail(nil))
	require.Empty(t, rt.History())

	require.NoError(t, fail(errors.New("timeout")))
	h := rt.History()
	require.Len(t, h, 1)
	require.Equal(t, "failed: timeout", h[0].Msg.Payload)
}
