// Package config loads enhance project configuration.
//
// Configuration lives in enhance.json, enhance.yaml or enhance.toml at the
// project root. Every key can be overridden from the environment with the
// ENHANCE_ prefix, using underscores for nesting (ENHANCE_DEV_PORT=4000).
//
// # Configuration File Structure
//
//	{
//	  "dev": {
//	    "port": 3000,
//	    "host": "localhost",
//	    "hotReload": true,
//	    "devMode": true,
//	    "debounce": "100ms",
//	    "watch": ["templates", "public"],
//	    "ignore": ["*.tmp"],
//	    "hmrRoute": "/__hmr",
//	    "socketPath": "/__enhance/ws",
//	    "fetchTimeout": "10s"
//	  },
//	  "templates": {
//	    "driver": "dir",
//	    "dir": "templates",
//	    "s3": {
//	      "bucket": "my-site",
//	      "region": "us-east-1",
//	      "prefix": "templates/"
//	    }
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Port:", cfg.Dev.Port)
package config
