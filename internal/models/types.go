package models

type ErrorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
	Command   string `json:"command"`
}

type RunReport struct {
	FilesDownloaded      int64  `json:"files_downloaded"`
	BytesDownloaded      int64  `json:"bytes_downloaded"`
	BytesDownloadedHuman string `json:"bytes_downloaded_human"`
	FilesSkipped         int64  `json:"files_skipped"`
	FilesFailed          int64  `json:"files_failed"`
	FilesUploaded        int64  `json:"files_uploaded"`
	FilesUploadFailed    int64  `json:"files_upload_failed"`
	OperationTime        string `json:"operation_time"`
	RunDuration          string `json:"run_duration"`
}

type CameraList struct {
	Cameras []CameraInfo `json:"cameras"`
	Count   int          `json:"count"`
}

type CameraInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type EventList struct {
	Events []EventInfo `json:"events"`
	Count  int         `json:"count"`
}

type EventInfo struct {
	ID     string `json:"id"`
	Camera string `json:"camera"`
	Type   string `json:"type"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Score  int    `json:"score"`
}
