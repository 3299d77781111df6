// Package storage defines the key-value backend that persistable stores are
// mirrored into, and ships two implementations.
//
// [Memory] lives as long as the process and stands in for session-scoped
// storage. [File] keeps every key in a single document on disk and stands in
// for durable local storage. The document format is picked from the file
// extension:
//
//	.json        encoding/json
//	.yaml, .yml  gopkg.in/yaml.v3
//	.toml        github.com/BurntSushi/toml
//
// Values are opaque strings; persistable stores write JSON into them.
//
// # Watching
//
// [File.Watch] follows the document with fsnotify and reloads it when another
// process rewrites it, reporting which keys changed:
//
//	local, _ := storage.OpenFile("state/local.yaml")
//	go local.Watch(ctx, func(keys []string) { log.Println("changed", keys) })
package storage
