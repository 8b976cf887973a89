// Package config provides configuration parsing for routemap projects.
//
// The configuration is stored in routemap.json at the project root.
// This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "manifest": "manifest.json",
//	  "routes": "src/routes",
//	  "nodes": {
//	    "source": "s3",
//	    "bucket": "crm-assets",
//	    "prefix": "_app/immutable",
//	    "region": "eu-west-1",
//	    "fingerprints": "build/fingerprints.json"
//	  },
//	  "server": {
//	    "host": "localhost",
//	    "port": 7070
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "routemap"
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  }
//	}
//
// Relative paths are resolved against the directory holding routemap.json.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Manifest:", cfg.ManifestPath())
package config
