package icsmodels

import "time"

// AckReport is one command result reported by a terminal on /iclock/devicecmd
type AckReport struct {
	ID     string `json:"id"`
	Return string `json:"return"`
	Cmd    string `json:"cmd"`
}

// AckEvent is published to telemetry for every acknowledgment call
type AckEvent struct {
	Serial     string      `json:"sn"`
	CmdStatus  string      `json:"cmd_status,omitempty"`
	Reports    []AckReport `json:"reports,omitempty"`
	Raw        string      `json:"raw,omitempty"`
	ReceivedAt time.Time   `json:"received_at"`
}

// UploadEvent is published to telemetry for attendance/operation log uploads
type UploadEvent struct {
	Serial     string    `json:"sn"`
	Table      string    `json:"table,omitempty"`
	Stamp      string    `json:"stamp,omitempty"`
	Records    []string  `json:"records"`
	ReceivedAt time.Time `json:"received_at"`
}
