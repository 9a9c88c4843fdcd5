package camera

import (
	"errors"
)

var (
	// ErrAlreadyStarted は開始済みのカメラを開始しようとした場合のエラー
	ErrAlreadyStarted = errors.New("カメラは既に開始されています")
	// ErrNotStarted は停止中のカメラを操作しようとした場合のエラー
	ErrNotStarted = errors.New("カメラが開始されていません")
	// ErrInvalidSettings は設定が不正な場合のエラー
	ErrInvalidSettings = errors.New("設定が無効です")
	// ErrFrameSize はジェネレーターが要求と異なるバイト数を書いた場合のエラー
	ErrFrameSize = errors.New("フレームのバイト数が一致しません")
	// ErrDevice は出力先デバイスのエラー
	ErrDevice = errors.New("デバイスが利用できません")
	// ErrNotFound はカメラが見つからない場合のエラー
	ErrNotFound = errors.New("カメラが見つかりません")
)

// 開始・停止の結果コード (HRESULT形式)
const (
	CodeOK             uint32 = 0x00000000
	CodeFail           uint32 = 0x80004005 // E_FAIL
	CodeInvalidArg     uint32 = 0x80070057 // E_INVALIDARG
	CodeNotReady       uint32 = 0x80070015 // ERROR_NOT_READY
	CodeAlreadyStarted uint32 = 0x800704DF // ERROR_ALREADY_INITIALIZED
	CodeInvalidData    uint32 = 0x8007000D // ERROR_INVALID_DATA
	CodeDevice         uint32 = 0x800710DF // ERROR_DEVICE_NOT_AVAILABLE
	CodeNotFound       uint32 = 0x80070490 // ERROR_NOT_FOUND
)

// Code はerrを結果コードに変換する。nilは0になる。
func Code(err error) uint32 {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrAlreadyStarted):
		return CodeAlreadyStarted
	case errors.Is(err, ErrNotStarted):
		return CodeNotReady
	case errors.Is(err, ErrInvalidSettings):
		return CodeInvalidArg
	case errors.Is(err, ErrFrameSize):
		return CodeInvalidData
	case errors.Is(err, ErrDevice):
		return CodeDevice
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	default:
		return CodeFail
	}
}
