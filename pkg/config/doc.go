/*
Package config loads mediasync settings from an optional file and the
environment.

	+-----------------+     +-----------------+
	|  file (.yaml,   |     |   environment   |
	|  .hcl, .json,   +---->+   (overrides)   |
	|  .env)          |     |                 |
	+-----------------+     +--------+--------+
	                                 |
	                        +--------+--------+
	                        | expand ~, check |
	                        | required values |
	                        +--------+--------+
	                                 |
	                            *Config

🎯 Purpose:
- One place for every path, host and review setting the tool needs
- Environment variable names are the ones the tool has always used
  (HDD_BACKUP, PHOTOPRISM_IMPORT_PATH, IGNORE_FILES, ...)

🔄 Flow:
1. The file, when given, is decoded by extension
2. Environment variables override file values; defaults fill the rest
3. Local paths are expanded, required values and globs are checked

⚠️ Missing values are reported together in a single *Error naming the
environment variables to set.
*/
package config
