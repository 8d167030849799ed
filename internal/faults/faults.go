package faults

import (
	"github.com/cockroachdb/errors"
)

// 错误分类哨兵,所有失败在向上传播前必须归入其中之一
// 处置策略: Auth/Store/Filesystem/Terminal直接上报,Transient/RateLimited退避重试,
// Browser重建会话后重试一次,Profile记错误后跳过继续
var (
	Auth        = errors.New("authentication failure")
	Transient   = errors.New("transient network failure")
	RateLimited = errors.New("platform rate limited")
	Browser     = errors.New("browser driver failure")
	Store       = errors.New("store failure")
	Filesystem  = errors.New("filesystem failure")
	Profile     = errors.New("profile unavailable")
	Terminal    = errors.New("terminal job failure")
)

// Mark 将err包装为指定分类,附带说明
func Mark(kind error, err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, msg), kind)
}

// Markf 同Mark,格式化说明
func Markf(kind error, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), kind)
}

// New 直接构造一个指定分类的错误
func New(kind error, msg string) error {
	return errors.Mark(errors.New(msg), kind)
}

func Newf(kind error, format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), kind)
}

func Is(err, kind error) bool {
	return errors.Is(err, kind)
}

// Retryable 是否可原地重试(不含Profile,它只能跳过)
func Retryable(err error) bool {
	return errors.Is(err, Transient) || errors.Is(err, RateLimited)
}
