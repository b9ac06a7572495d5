// Package transfer is the data-transfer kernel of the storage access layer.
// It moves arbitrary-sized byte payloads into remote object stores whose wire
// protocols impose chunking, alignment, and session-lifecycle constraints,
// while callers see a single write capability.
//
// The core is the size-adaptive Writer: small payloads go up in one request,
// large ones through a backend-issued upload session as a strictly ordered
// sequence of factor-aligned chunks. The Writer is generic over the Backend
// capability, so one engine serves every remote store that can satisfy the
// three backend operations.
//
// Around the engine sit composable stages that share the same byte-shape
// contracts (see the streams subpackage): progress observers, a seekable
// wrapper over forward-only sources, and a decompression pipeline. The walk
// subpackage enumerates hierarchical key spaces for batch transfers. Conforming
// backends for a Graph-style drive API and for S3 multipart upload live in the
// graph and s3 subpackages.
//
// Example usage:
//
//	backend, err := graph.New(graph.WithAccessToken(token))
//	if err != nil {
//	    return err
//	}
//
//	w, err := transfer.New(backend, "backups/db.snapshot")
//	if err != nil {
//	    return err
//	}
//	if err := w.Write(ctx, payload); err != nil {
//	    return err
//	}
package transfer
