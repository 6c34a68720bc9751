package notifier

import "log/slog"

func recoverCallback(name string) {
	if r := recover(); r != nil {
		slog.Error("Recovered panic in background callback", "callback", name, "panic", r)
	}
}
