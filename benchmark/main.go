package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var formatDirs = []string{"jpg", "jpeg", "png", "gif", "webp"}

func main() {
	endpoint := flag.String("endpoint", "http://localhost:8080/analyze/stream", "streaming analyze endpoint")
	dataDir := flag.String("data", filepath.Join(".", "data"), "directory with one sub-directory per image format")
	flag.Parse()

	ctx := context.Background()

	var results []BenchResult
	for _, format := range formatDirs {
		dir := filepath.Join(*dataDir, format)

		images, _ := os.ReadDir(dir)

		for _, img := range images {
			if img.IsDir() {
				continue
			}
			res := benchmarkImage(ctx, *endpoint, filepath.Join(dir, img.Name()), format)

			if res.Err != nil {
				log.Println("ERR:", res.File, res.Err)
			} else {
				log.Printf("OK %s %v (first byte %v)", res.File, res.Duration, res.FirstByte)
			}

			results = append(results, res)
		}
	}

	printMarkdown(results)
}

func benchmarkImage(ctx context.Context, endpoint, filePath, format string) BenchResult {
	res := BenchResult{File: filepath.Base(filePath), Format: format}

	raw, err := os.ReadFile(filePath)
	if err != nil {
		res.Err = err
		return res
	}
	res.Size = int64(len(raw))

	start := time.Now()
	var full strings.Builder

	err = sendStream(ctx, endpoint, res.File, raw, func(c Chunk) error {
		if res.FirstByte == 0 {
			res.FirstByte = time.Since(start)
		}
		full.WriteString(c.Delta)
		return nil
	})

	res.Duration = time.Since(start)
	res.Chars = full.Len()
	res.Err = err
	return res
}

func sendStream(ctx context.Context, endpoint, filename string, data []byte, onChunk func(Chunk) error) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		var eb ErrorBody
		if json.Unmarshal(b, &eb) == nil && eb.Error != "" {
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, eb.Error)
		}
		return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	reader := bufio.NewReader(resp.Body)
	event := ""

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)

		if strings.HasPrefix(line, "event: ") {
			event = strings.TrimPrefix(line, "event: ")
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		switch event {
		case "done":
			return nil
		case "error":
			var eb ErrorBody
			if json.Unmarshal([]byte(payload), &eb) == nil && eb.Error != "" {
				return errors.New(eb.Error)
			}
			return fmt.Errorf("stream error: %s", payload)
		}

		var c Chunk
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return err
		}

		if err := onChunk(c); err != nil {
			return err
		}
	}
}

func aggregate(results []BenchResult) map[string]Agg {
	m := map[string]Agg{}
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		a := m[r.Format]
		a.Count++
		a.TotalBytes += r.Size
		a.Total += r.Duration
		a.FirstByte += r.FirstByte
		m[r.Format] = a
	}
	return m
}

func printMarkdown(results []BenchResult) {
	fmt.Print("\n## Benchmark Results\n\n")
	fmt.Println("| Format | Requests | Avg Time | Avg First Chunk | Avg File Size |")
	fmt.Println("|--------|----------|----------|-----------------|---------------|")

	agg := aggregate(results)
	formats := make([]string, 0, len(agg))
	for format := range agg {
		formats = append(formats, format)
	}
	sort.Strings(formats)

	var (
		totalCount    int
		totalDuration time.Duration
		totalBytes    int64
	)

	for _, format := range formats {
		a := agg[format]
		avg := a.Total / time.Duration(a.Count)
		avgFirst := a.FirstByte / time.Duration(a.Count)
		fmt.Printf("| %s | %d | %v | %v | %s |\n",
			format,
			a.Count,
			avg.Round(time.Millisecond),
			avgFirst.Round(time.Millisecond),
			humanBytes(a.TotalBytes/int64(a.Count)),
		)
		totalCount += a.Count
		totalDuration += a.Total
		totalBytes += a.TotalBytes
	}

	if totalCount > 0 {
		fmt.Printf("| **ALL** | %d | %v | - | %s |\n",
			totalCount,
			(totalDuration / time.Duration(totalCount)).Round(time.Millisecond),
			humanBytes(totalBytes/int64(totalCount)),
		)
	}
}

func humanBytes(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)
	switch {
	case size >= MB:
		return fmt.Sprintf("%.2f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.2f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d B", size)
	}
}
