// Package rtmplog is the ambient logger for the relay binary and
// network layer: plain line logging gated by a couple of env vars,
// matching the conventions the core packages never need (they stay
// pure and silent).
package rtmplog

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

var mutex sync.Mutex

func Line(line string) {
	tm := time.Now()
	mutex.Lock()
	defer mutex.Unlock()
	fmt.Printf("[%s] %s\n", tm.Format("2006-01-02 15:04:05"), line)
}

func Warning(line string) {
	Line("[WARNING] " + line)
}

func Info(line string) {
	Line("[INFO] " + line)
}

func Error(err error) {
	Line("[ERROR] " + err.Error())
}

var requestsEnabled = os.Getenv("LOG_REQUESTS") != "NO"

func Request(connID uint64, ip string, line string) {
	if requestsEnabled {
		Line("[REQUEST] #" + strconv.FormatUint(connID, 10) + " (" + ip + ") " + line)
	}
}

var debugEnabled = os.Getenv("LOG_DEBUG") == "YES"

func Debug(line string) {
	if debugEnabled {
		Line("[DEBUG] " + line)
	}
}

func DebugSession(connID uint64, ip string, line string) {
	if debugEnabled {
		Line("[DEBUG] #" + strconv.FormatUint(connID, 10) + " (" + ip + ") " + line)
	}
}
