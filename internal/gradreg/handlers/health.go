package handlers

import "net/http"

func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"service":"graduation registration backend","status":"ok"}`))
}
