// Package config loads navsync.json, the configuration for the
// navsync server.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "localhost",
//	    "port": 8080,
//	    "wsPath": "/ws",
//	    "metricsPath": "/metrics",
//	    "healthPath": "/healthz",
//	    "maxMessageSize": 65539,
//	    "writeTimeout": "10s",
//	    "allowedOrigins": ["http://localhost:3000"]
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  },
//	  "tracing": {
//	    "tracerName": "navsync"
//	  },
//	  "metrics": {
//	    "namespace": "navsync"
//	  },
//	  "redirects": {
//	    "/old": "/new"
//	  }
//	}
//
// Missing fields take their defaults. Validate reports the first invalid
// field as a C001 error.
package config
