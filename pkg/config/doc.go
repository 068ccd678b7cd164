// Package config provides configuration for objectdag processes.
//
// A process is configured by one YAML document:
//
//	logging:
//	  level: info
//	transports:
//	  - name: local
//	    type: disk
//	    options:
//	      path: ./objects
//	    compression:
//	      algorithm: zstd
//	  - name: warehouse
//	    type: postgres
//	    options:
//	      dsn: ${OBJECTDAG_PG_DSN}
//
// Every record produced by a serialize call is offered to every transport
// listed, in order. Environment variables written as ${VAR_NAME} are
// substituted before parsing, so secrets stay out of the file.
//
// A TransportConfig holds a name, a registered type and a free-form
// Options map read by the transport factory, plus the shared Timeouts and
// Compression sections.
package config
