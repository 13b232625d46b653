package moonreader

import (
	"archive/zip"
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	// dbManifestLocator is the database name listed in the backup manifest.
	dbManifestLocator = "mrbooks.db"
	manifestName      = "_names.list"
	packagePrefix     = "com.flyersoft"
	// DatabaseFile is the name the extracted database is written under.
	DatabaseFile = "mrbooks.db"
)

var ErrNoBackup = errors.New("no MoonReader backup found")

// IsBackupFile reports whether name looks like a MoonReader backup archive.
func IsBackupFile(name string) bool {
	return strings.HasSuffix(name, ".mrstd") || strings.HasSuffix(name, ".mrpro")
}

// FindLatestBackup returns the newest backup in dir. Backups are named
// YYYYMMDD_HHMMSS.mrstd so the greatest name is the latest.
func FindLatestBackup(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read backup directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && IsBackupFile(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoBackup, dir)
	}

	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}

// ExtractDatabase copies the notes database out of a backup archive into
// destDir and returns its path.
//
// The archive stores every file as {package}/{N}.tag, where N is the line of
// the original path in {package}/_names.list.
func ExtractDatabase(backupPath, destDir string) (string, error) {
	archive, err := zip.OpenReader(backupPath)
	if err != nil {
		return "", fmt.Errorf("failed to open backup file: %w", err)
	}
	defer archive.Close()

	files := make(map[string]*zip.File, len(archive.File))
	var packageDir string
	for _, file := range archive.File {
		files[file.Name] = file
		dir, name := path.Split(file.Name)
		if name == manifestName && strings.HasPrefix(dir, packagePrefix) {
			packageDir = dir
		}
	}
	if packageDir == "" {
		return "", fmt.Errorf("manifest %s not found in %s", manifestName, backupPath)
	}

	line, err := findDBInManifest(files[packageDir+manifestName])
	if err != nil {
		return "", err
	}

	tagName := packageDir + strconv.Itoa(line) + ".tag"
	dbFile, ok := files[tagName]
	if !ok {
		return "", fmt.Errorf("presumed database file %s does not exist", tagName)
	}

	outputPath := filepath.Join(destDir, DatabaseFile)
	if err := extractZipFile(dbFile, outputPath); err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", tagName, err)
	}
	return outputPath, nil
}

// findDBInManifest returns the 1-based line of the database in the manifest.
func findDBInManifest(manifest *zip.File) (int, error) {
	rc, err := manifest.Open()
	if err != nil {
		return 0, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		if strings.Contains(path.Base(strings.TrimSpace(scanner.Text())), dbManifestLocator) {
			return lineNumber, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("error reading manifest: %w", err)
	}

	return 0, fmt.Errorf("database %s not listed in manifest", dbManifestLocator)
}

func extractZipFile(file *zip.File, destPath string) error {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
