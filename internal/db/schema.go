package db

// The index lives in two tables. source_files tracks each document as the
// unit of provenance and re-indexing, keyed uniquely by path; fragments holds
// the chunks with their embedding blobs and cascade-deletes with their file.
//
// The driver executes one statement per call, so the schema is a list rather
// than a single script.

const SchemaPragma = `PRAGMA foreign_keys = ON`

const SchemaSourceFiles = `
CREATE TABLE IF NOT EXISTS source_files
(
    id            INTEGER PRIMARY KEY AUTOINCREMENT,

    file_path     TEXT UNIQUE NOT NULL,

    provider      TEXT NOT NULL,
    model         TEXT NOT NULL,

    last_modified INTEGER,
    metadata      TEXT
)`

const SchemaFragments = `
CREATE TABLE IF NOT EXISTS fragments
(
    id          INTEGER PRIMARY KEY AUTOINCREMENT,

    file_id     INTEGER NOT NULL,
    chunk_index INTEGER NOT NULL,

    content     TEXT NOT NULL,
    embedding   BLOB,

    CONSTRAINT unique_file_chunk UNIQUE (file_id, chunk_index),
    FOREIGN KEY (file_id) REFERENCES source_files (id) ON DELETE CASCADE
)`

// Schema is the full DDL in execution order.
var Schema = []string{SchemaPragma, SchemaSourceFiles, SchemaFragments}
