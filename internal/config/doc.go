// Package config provides configuration management for pagecms.
//
// Configuration is loaded from config.yaml in a single directory, by
// default ~/.config/pagecms, selectable with the --config-path flag. Values
// not present in the file keep the defaults from GetDefaultConfig.
//
// # File Format
//
//	repository:
//	  owner: octo
//	  repo: wiki
//	  branch: main
//	  pagesDir: pages
//	oauth:
//	  clientId: Iv1.0123456789abcdef
//	api:
//	  timeout: 30s
//	commit:
//	  messageTemplate: 'docs: update {{ .Page }}'
//
// # Environment
//
// PAGECMS_CLIENT_ID, PAGECMS_OWNER, PAGECMS_REPO and PAGECMS_BRANCH
// override the corresponding file values.
//
// The credential file github_token.json is stored in credentials.dir,
// which defaults to the configuration directory.
package config
