package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/minqi/alphahunter/internal/database"
)

const (
	archivePrefix  = "alphahunter-backup-"
	archiveStamp   = "2006-01-02-150405"
	metadataFile   = "backup-metadata.json"
	resultsFile    = "scan_results.json"
	backupVersion  = "3.0.0"
	minBackupsKept = 3
)

// BackupMetadata describes one backup archive.
type BackupMetadata struct {
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	Files     []FileMetadata `json:"files"`
}

// FileMetadata describes a single file inside the archive.
type FileMetadata struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupInfo summarizes a backup found in the bucket.
type BackupInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// BackupServiceConfig assembles the backup service's collaborators.
type BackupServiceConfig struct {
	Log zerolog.Logger

	// Store is nil when no bucket is configured; backups then degrade
	// to a log line.
	Store         ObjectStorage
	Databases     []*database.DB
	ResultsPath   string
	StagingDir    string
	KeyPrefix     string
	RetentionDays int // 0 keeps every backup
}

// BackupService stages consistent SQLite copies and the results document,
// bundles them with checksums into a tar.gz and uploads the archive.
type BackupService struct {
	store         ObjectStorage
	databases     []*database.DB
	resultsPath   string
	stagingDir    string
	keyPrefix     string
	retentionDays int
	log           zerolog.Logger
}

// NewBackupService creates a backup service.
func NewBackupService(cfg BackupServiceConfig) *BackupService {
	return &BackupService{
		store:         cfg.Store,
		databases:     cfg.Databases,
		resultsPath:   cfg.ResultsPath,
		stagingDir:    cfg.StagingDir,
		keyPrefix:     cfg.KeyPrefix,
		retentionDays: cfg.RetentionDays,
		log:           cfg.Log.With().Str("component", "backup_service").Logger(),
	}
}

// CreateAndUploadBackup stages, archives and uploads one backup.
func (s *BackupService) CreateAndUploadBackup(ctx context.Context) error {
	if s.store == nil {
		s.log.Info().Msg("No object storage configured, backup skipped")
		return nil
	}

	start := time.Now()
	s.log.Info().Msg("Starting backup")

	if err := os.MkdirAll(s.stagingDir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(s.stagingDir)

	metadata := BackupMetadata{
		Timestamp: start.UTC(),
		Version:   backupVersion,
		Files:     make([]FileMetadata, 0, len(s.databases)+1),
	}

	var staged []string
	for _, db := range s.databases {
		filename := db.Name() + ".db"
		dest := filepath.Join(s.stagingDir, filename)

		s.log.Debug().Str("database", db.Name()).Msg("Staging database copy")
		if err := s.stageDatabase(ctx, db, dest); err != nil {
			return fmt.Errorf("failed to stage %s: %w", db.Name(), err)
		}

		fileMeta, err := s.describeFile(dest, filename)
		if err != nil {
			return err
		}
		metadata.Files = append(metadata.Files, fileMeta)
		staged = append(staged, filename)
	}

	if _, err := os.Stat(s.resultsPath); err == nil {
		dest := filepath.Join(s.stagingDir, resultsFile)
		if err := copyFile(s.resultsPath, dest); err != nil {
			return fmt.Errorf("failed to stage results document: %w", err)
		}

		fileMeta, err := s.describeFile(dest, resultsFile)
		if err != nil {
			return err
		}
		metadata.Files = append(metadata.Files, fileMeta)
		staged = append(staged, resultsFile)
	} else {
		s.log.Debug().Msg("No results document yet, backing up databases only")
	}

	if err := s.writeMetadata(filepath.Join(s.stagingDir, metadataFile), metadata); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	staged = append(staged, metadataFile)

	archiveName := archivePrefix + start.Format(archiveStamp) + ".tar.gz"
	archivePath := filepath.Join(s.stagingDir, archiveName)
	if err := s.createArchive(archivePath, staged); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	archiveInfo, err := os.Stat(archivePath)
	if err != nil {
		return fmt.Errorf("failed to stat archive: %w", err)
	}

	archiveReader, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveReader.Close()

	if err := s.store.Upload(ctx, s.key(archiveName), archiveReader); err != nil {
		return fmt.Errorf("failed to upload backup: %w", err)
	}

	s.log.Info().
		Str("archive", archiveName).
		Int64("size_bytes", archiveInfo.Size()).
		Int("files", len(staged)).
		Dur("duration_ms", time.Since(start)).
		Msg("Backup uploaded")

	return nil
}

// ListBackups returns the backups in the bucket, newest first.
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, s.key(archivePrefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	backups := make([]BackupInfo, 0, len(objects))
	now := time.Now()

	for _, obj := range objects {
		name := path.Base(obj.Key)
		if !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, ".tar.gz") {
			continue
		}

		stamp := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), ".tar.gz")
		timestamp, err := time.Parse(archiveStamp, stamp)
		if err != nil {
			s.log.Warn().Str("key", obj.Key).Msg("Unrecognized backup name, skipping")
			continue
		}

		backups = append(backups, BackupInfo{
			Key:       obj.Key,
			Timestamp: timestamp,
			SizeBytes: obj.Size,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// RotateOldBackups deletes backups past the retention period. The newest
// three are always kept, whatever their age.
func (s *BackupService) RotateOldBackups(ctx context.Context) error {
	if s.store == nil || s.retentionDays <= 0 {
		return nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return err
	}
	if len(backups) <= minBackupsKept {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	deleted := 0

	for _, backup := range backups[minBackupsKept:] {
		if !backup.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, backup.Key); err != nil {
			s.log.Error().Err(err).Str("key", backup.Key).Msg("Failed to delete expired backup")
			continue
		}
		s.log.Info().Str("key", backup.Key).Time("timestamp", backup.Timestamp).Msg("Expired backup deleted")
		deleted++
	}

	if deleted > 0 {
		s.log.Info().Int("deleted", deleted).Int("remaining", len(backups)-deleted).Msg("Backup rotation completed")
	}
	return nil
}

// stageDatabase writes a consistent copy of the database into the staging
// directory. VACUUM INTO runs inside SQLite, so the copy is transactionally
// clean even while the scanner keeps writing.
func (s *BackupService) stageDatabase(ctx context.Context, db *database.DB, dest string) error {
	// VACUUM INTO refuses to overwrite
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return err
	}
	return db.VacuumInto(ctx, dest)
}

// describeFile stats and checksums a staged file.
func (s *BackupService) describeFile(filePath, name string) (FileMetadata, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return FileMetadata{}, fmt.Errorf("failed to stat %s: %w", name, err)
	}

	checksum, err := checksumFile(filePath)
	if err != nil {
		return FileMetadata{}, fmt.Errorf("failed to checksum %s: %w", name, err)
	}

	return FileMetadata{Name: name, SizeBytes: info.Size(), Checksum: checksum}, nil
}

// writeMetadata writes the metadata sidecar.
func (s *BackupService) writeMetadata(dest string, metadata BackupMetadata) error {
	file, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

// createArchive bundles the named staged files into a tar.gz.
func (s *BackupService) createArchive(archivePath string, names []string) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	defer gzipWriter.Close()

	tarWriter := tar.NewWriter(gzipWriter)
	defer tarWriter.Close()

	for _, name := range names {
		if err := s.addFileToArchive(tarWriter, filepath.Join(s.stagingDir, name), name); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
	}
	return nil
}

// addFileToArchive appends one file to the tar stream.
func (s *BackupService) addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}
	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}
	if _, err := io.Copy(tarWriter, file); err != nil {
		return err
	}
	return nil
}

// key prepends the configured bucket prefix.
func (s *BackupService) key(name string) string {
	if s.keyPrefix == "" {
		return name
	}
	return path.Join(s.keyPrefix, name)
}

// checksumFile computes a sha256 checksum in the metadata format.
func checksumFile(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

// copyFile copies src to dest.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
