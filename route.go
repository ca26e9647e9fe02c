package tesmx

type routeOptions struct {
	strict bool
}

// RouteOption configures Route.
type RouteOption func(*routeOptions)

// Strict makes the router return *UnknownCommandError for tags it has no
// entry for. By default such commands are ignored.
func Strict() RouteOption {
	return func(o *routeOptions) {
		o.strict = true
	}
}

// Route builds a command handler that dispatches on the command tag.
func Route[C Tagged](handlers map[string]CommandHandler[C], opts ...RouteOption) CommandHandler[C] {
	var o routeOptions
	for _, opt := range opts {
		opt(&o)
	}
	table := make(map[string]CommandHandler[C], len(handlers))
	for tag, h := range handlers {
		if h != nil {
			table[tag] = h
		}
	}
	return func(cmd C) error {
		h, ok := table[cmd.Tag()]
		if !ok {
			if o.strict {
				return &UnknownCommandError{Command: cmd.Tag()}
			}
			return nil
		}
		return h(cmd)
	}
}

// Handle adapts a handler written against one concrete command type.
func Handle[CC any, C Tagged](fn func(CC) error) CommandHandler[C] {
	return func(cmd C) error {
		cc, ok := any(cmd).(CC)
		if !ok {
			return &UnknownCommandError{Command: cmd.Tag()}
		}
		return fn(cc)
	}
}

// Fold turns an error into a message and sends it, so failures observed by
// a command handler re-enter the machine as ordinary messages. A nil error
// sends nothing.
func Fold[M Tagged](send func(M) error, toMsg func(error) M) func(error) error {
	return func(err error) error {
		if err == nil {
			return nil
		}
		return send(toMsg(err))
	}
}
