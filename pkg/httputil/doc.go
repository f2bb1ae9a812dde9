// Package httputil provides response helpers and middleware shared by the
// reflector's HTTP endpoints.
//
// Responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteProto(w, r, http.StatusOK, resp) // binary or protojson
//	httputil.WriteBytes(w, http.StatusOK, httputil.ContentTypeProto, encoded)
//	httputil.WriteBadRequest(w, "request body is empty")
//
// Middleware:
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.LoggingMiddleware(logger),
//		httputil.MaxBytesMiddleware(4<<20),
//	)
package httputil
