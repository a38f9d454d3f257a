package beancount

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/pathutil"
)

// Repository defines the interface for Beancount file operations.
type Repository interface {
	// AppendTransactions appends formatted transactions to a monthly file,
	// creating it first if needed. It returns the file written.
	AppendTransactions(yearMonth string, transactions []string) (string, error)

	// ReadMonthFile reads the content of a monthly file
	ReadMonthFile(yearMonth string) (string, error)

	// ListMonths lists the YYYY-MM keys of the monthly files of a year
	ListMonths(year string) ([]string, error)

	// WriteAccountsFile replaces the file holding the open directives
	WriteAccountsFile(content string) error
}

// FileSystemRepository is a file system implementation of Repository.
type FileSystemRepository struct {
	pathResolver *pathutil.PathResolver
	now          func() time.Time
}

// NewFileSystemRepository creates a new FileSystemRepository.
func NewFileSystemRepository(pathResolver *pathutil.PathResolver) *FileSystemRepository {
	return &FileSystemRepository{
		pathResolver: pathResolver,
		now:          time.Now,
	}
}

// AppendTransactions appends transactions to the file of yearMonth, each
// followed by a blank line.
func (r *FileSystemRepository) AppendTransactions(yearMonth string, transactions []string) (string, error) {
	filePath, err := r.ensureMonthFile(yearMonth)
	if err != nil {
		return "", err
	}
	if len(transactions) == 0 {
		return filePath, nil
	}

	var sb strings.Builder
	for _, txn := range transactions {
		sb.WriteString(strings.TrimRight(txn, "\n"))
		sb.WriteString("\n\n")
	}

	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open file for appending: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(sb.String()); err != nil {
		return "", fmt.Errorf("failed to write to file: %w", err)
	}
	return filePath, nil
}

func (r *FileSystemRepository) ensureMonthFile(yearMonth string) (string, error) {
	filePath, err := r.pathResolver.GetMonthFilePath(yearMonth)
	if err != nil {
		return "", fmt.Errorf("failed to get month file path: %w", err)
	}
	if r.pathResolver.FileExists(filePath) {
		return filePath, nil
	}

	if err := r.pathResolver.EnsureParentDir(filePath); err != nil {
		return "", fmt.Errorf("failed to ensure parent directory: %w", err)
	}
	if err := os.WriteFile(filePath, []byte(r.header("Beancount file for "+yearMonth)), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return filePath, nil
}

// ReadMonthFile reads the content of a monthly file.
// Returns empty string if file doesn't exist.
func (r *FileSystemRepository) ReadMonthFile(yearMonth string) (string, error) {
	filePath, err := r.pathResolver.GetMonthFilePath(yearMonth)
	if err != nil {
		return "", fmt.Errorf("failed to get month file path: %w", err)
	}
	if !r.pathResolver.FileExists(filePath) {
		return "", nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}

// ListMonths returns the sorted month keys found in the year directory.
func (r *FileSystemRepository) ListMonths(year string) ([]string, error) {
	yearDir := r.pathResolver.GetYearDir(year)
	if !r.pathResolver.FileExists(yearDir) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(yearDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read year directory: %w", err)
	}

	months := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".beancount" {
			continue
		}
		months = append(months, strings.TrimSuffix(name, ".beancount"))
	}
	slices.Sort(months)
	return months, nil
}

// WriteAccountsFile replaces the accounts file with a header and content.
func (r *FileSystemRepository) WriteAccountsFile(content string) error {
	filePath := r.pathResolver.GetAccountsFilePath()
	if err := r.pathResolver.EnsureParentDir(filePath); err != nil {
		return fmt.Errorf("failed to ensure parent directory: %w", err)
	}
	if err := os.WriteFile(filePath, []byte(r.header("Chart of accounts")+content), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (r *FileSystemRepository) header(title string) string {
	return fmt.Sprintf("; %s\n; Generated at %s\n\n", title, r.now().Format(time.RFC3339))
}
