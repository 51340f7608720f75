package log

import "log/slog"

func WorkflowID(id string) slog.Attr {
	return slog.String("workflow_id", id)
}

func RunID(id string) slog.Attr {
	return slog.String("run_id", id)
}

func StepOrder(order int) slog.Attr {
	return slog.Int("step_order", order)
}

func Identity(id string) slog.Attr {
	return slog.String("identity", id)
}

func Protocol[T ~string](p T) slog.Attr {
	return slog.String("protocol", string(p))
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

func ErrorString(msg string) slog.Attr {
	return slog.String("error", msg)
}
