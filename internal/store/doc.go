// Package store is the entity storage and mutation layer for a planner
// workspace.
//
// # Overview
//
// A workspace is a directory tree of markdown files, one per project and
// one per task, each carrying a YAML frontmatter header and a sectioned
// body:
//
//	workspace/
//	├── .nlplanner/            (config, index cache, logs)
//	├── projects/
//	│   └── <slug>/
//	│       ├── README.md      (project header + body)
//	│       ├── tasks/
//	│       │   └── task-001.md
//	│       └── attachments/
//	└── archive/
//	    └── <slug>/            (same shape, terminal lifecycle zone)
//
// The files are the source of truth. The store offers create, read,
// update, list, link, move, and archive operations over them, plus the
// checklist (subtask) and agent-tip body sections. There is no hard
// delete: archival moves an entity to the archive zone and is terminal.
//
// # Identifiers
//
// Projects are identified by a filesystem-safe slug derived from their
// name. Tasks carry workspace-wide sequential ids (task-001, task-002,
// ...) minted by scanning every tasks/ directory in both zones for the
// highest existing number. Ids are never reused; archiving and moving
// preserve them.
//
// # Concurrency
//
// All operations are synchronous local filesystem calls. Read-modify-write
// sequences run under a per-file mutex and id minting under a store-wide
// one, so concurrent callers inside one process cannot lose updates or
// mint duplicate ids. Cross-process access is not coordinated.
package store
