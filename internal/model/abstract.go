package model

import "bytes"

// AbstractKind 摘要文件类型，仅用于客户端下载命名
type AbstractKind string

const (
	AbstractPDF    AbstractKind = "pdf"
	AbstractDoc    AbstractKind = "doc"
	AbstractDocx   AbstractKind = "docx"
	AbstractBinary AbstractKind = "bin"
)

var (
	magicPDF   = []byte("%PDF")
	magicOLE   = []byte{0xD0, 0xCF, 0x11, 0xE0}
	magicOOXML = []byte("PK")
)

// SniffAbstract 按文件头魔数判断类型
func SniffAbstract(b []byte) AbstractKind {
	switch {
	case bytes.HasPrefix(b, magicPDF):
		return AbstractPDF
	case bytes.HasPrefix(b, magicOLE):
		return AbstractDoc
	case bytes.HasPrefix(b, magicOOXML):
		return AbstractDocx
	default:
		return AbstractBinary
	}
}
