// Package errs 定义各组件共用的错误类别
// 组件返回的错误通过 %w 包装这些哨兵值，调用方使用 errors.Is 判断类别
package errs

import "errors"

var (
	// ErrInvalidInput 参数不合法（调用方需要修正输入）
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound 外部服务找不到对应资源（歌曲、歌词等）
	ErrNotFound = errors.New("not found")

	// ErrNetwork 网络或远端服务错误（超时、配额、5xx）
	ErrNetwork = errors.New("network error")

	// ErrEncoding 编码/转码/文件写入错误
	ErrEncoding = errors.New("encoding error")
)

// Kind 返回错误所属的类别，无法识别时返回 nil
func Kind(err error) error {
	for _, kind := range []error{ErrInvalidInput, ErrNotFound, ErrNetwork, ErrEncoding} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
