package server

import "github.com/slicingmelon/threadserver/internal/gslog"

// facade is the concrete plugin.ServerFacade a HandlerDescriptor's factory
// receives — deliberately narrow, so handler packages never reach for
// server-root globals directly, scoped down to just what a handler factory
// needs.
type facade struct {
	log *gslog.Logger
}

func (f *facade) Logger() *gslog.Logger { return f.log }
