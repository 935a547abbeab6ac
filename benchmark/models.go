package main

import "time"

type Chunk struct {
	Delta string `json:"delta"`
	Done  bool   `json:"done"`
}

type ErrorBody struct {
	Error string `json:"error"`
}

type BenchResult struct {
	File      string
	Format    string
	Size      int64
	Duration  time.Duration
	FirstByte time.Duration
	Chars     int
	Err       error
}

type Agg struct {
	Count      int
	TotalBytes int64
	Total      time.Duration
	FirstByte  time.Duration
}
