// Package objectdag stores nested object graphs as content-addressed JSON
// records.
//
// A graph is decomposed depth first. Values under keys with a single
// leading '@', and every chunk of a sequence longer than 5000 elements,
// become records of their own; the parent keeps a reference in their place.
// A record's id is the hex MD5 of its canonical JSON, so identical
// sub-graphs always map to the same record and are stored once. Each
// record also carries a closure table: every descendant id with its depth.
//
// # Architecture
//
// Records flow from the serializer to one or more transports:
//
//	graph -> serializer.Serialize -> core.Record -> transport.SaveObject
//	id    -> loader.Load          -> transport.GetObject -> graph
//
// Descendants are saved before their ancestors, so a stored record's
// references always resolve.
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/ajitpratap0/objectdag/pkg/models"
//	    "github.com/ajitpratap0/objectdag/pkg/serializer"
//	    "github.com/ajitpratap0/objectdag/pkg/transport/core"
//	    "github.com/ajitpratap0/objectdag/pkg/transport/memory"
//	)
//
//	store := memory.New("cache")
//	s := serializer.New([]core.Transport{store})
//
//	obj := models.NewBase("Objects.Model").
//	    Set("name", "x").
//	    Set("@child", models.NewBase("").Set("name", "y"))
//	root, err := s.Serialize(context.Background(), obj)
//
// # Key Packages
//
//	pkg/models        - Object model: Base, DataChunk, wire constants
//	pkg/serializer    - Graph decomposition, closure tables, chunking
//	pkg/loader        - Rebuilds graphs from stored records
//	pkg/json          - Canonical encoder, content ids, ordered decoding
//	pkg/transport     - Transport contracts, registry and implementations
//	pkg/compression   - Payload compression for blob transports
//	pkg/config        - YAML configuration with ${VAR} substitution
//	pkg/errors        - Structured error handling
//	pkg/logger        - Structured logging
//	pkg/metrics       - Prometheus metrics
//	pkg/observability - OpenTelemetry tracing
//
// # Transports
//
//	memory    in-process map
//	disk      local directory, optional compression
//	sqlite    single table via modernc.org/sqlite
//	mysql     single table via go-sql-driver/mysql
//	postgres  single table via pgx
//	mongodb   one document per record
//	s3, gcs   object stores, optional compression
//	kafka     publish only, keyed by record id
//
// # Configuration
//
//	logging:
//	  level: info
//	transports:
//	  - name: local
//	    type: disk
//	    options:
//	      path: ${HOME}/.objectdag
//	    compression:
//	      algorithm: zstd
//
// Environment variables are supported with ${VAR_NAME} syntax.
//
// # Command Line
//
//	objectdag serialize --config objectdag.yaml --input model.json
//	objectdag load --config objectdag.yaml --transport local <id>
//	objectdag transports
package objectdag
