package types

import "io"

// ReadCloser 上传内容.
type ReadCloser = io.ReadCloser

// FileContent 可读取的文件内容，Body 由调用方关闭.
type FileContent struct {
	Name     string
	MimeType string
	Size     int64
	Body     io.ReadCloser
}
