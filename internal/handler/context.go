package handler

type ContextKey string

var (
	SubCtxKey ContextKey = "sub"
	PlanCtx   ContextKey = "plan"
)
