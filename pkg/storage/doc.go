// Package storage writes fetch results to disk and reads them back.
//
// An export is a single JSON or YAML document named
// <account>_saved.<format> holding every fetched page verbatim plus run
// metadata. Writes go through a synced temporary file and a rename so a
// crash never leaves a truncated export; the previous export, if any, is
// kept as <file>.backup.
//
//	manager, err := storage.NewManager(cfg.Output.Directory, cfg.Output.Pretty, log)
//	path, err := manager.Save(resultSet, storage.FormatJSON)
//	export, err := storage.Load(path)
package storage
