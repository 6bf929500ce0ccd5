// Package backup implements full-database backup and restore for MySQL.
//
// A backup is produced by streaming the output of the mysqldump executable
// through an optional XOR stream cipher and a compression codec into a
// framed container file: a fixed tag prefix followed by the transformed
// payload. Restore runs the chain in reverse, feeding the mysql executable's
// standard input after dropping and recreating the target database.
//
// Core components:
//
//   - Pipeline: orchestrates the dump/restore subprocesses and the transform chain
//   - StreamCipher: password-keyed, self-inverse XOR transform with a global stream offset
//   - Codec: streaming compression (gzip by default, zstd and lz4 supported)
//   - Framer helpers: tag writing/verification, timestamped filenames, latest-file selection
//   - StorageProvider: optional upload of finished artifacts to local, S3, GCS or Azure backends
//
// The cipher password and the compression algorithm are a contract between
// backup and restore: a file can only be restored with the exact
// configuration that produced it.
//
// Example usage:
//
//	pipeline := backup.NewPipeline(logger)
//	path, err := pipeline.Backup(ctx, backup.Config{
//		Database:    dbConfig,
//		Dir:         "/var/backups/app",
//		Password:    "secret",
//		Compression: backup.CompressionTypeGzip,
//	})
//	if err != nil {
//		return fmt.Errorf("backup failed: %w", err)
//	}
package backup
