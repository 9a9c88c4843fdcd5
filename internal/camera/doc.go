// Package camera 仮想カメラのホストを担う
//
// # 責務
// - 接続ごとにフレームジェネレーターファクトリーを呼び出す
// - 一定間隔でジェネレーターにフレームを要求する
// - 書き込まれたバイト数を検証し、壊れた接続を作り直す
// - 完成したフレームをシンク（MJPEGプレビュー、v4l2loopback）へ配信する
// - 複数カメラの追加・削除・開始・停止
//
// # 仕様
// - VirtualCamera: 1台のカメラ。Start/Stop/Restartは同期的に完了する
// - Camera Manager: 複数カメラの統合管理
// - Loopback Discovery: v4l2loopbackデバイスの検出
// - Loopback Sink: VIDIOC_S_FMTで出力形式を設定しRGB32を書き込む（Linuxのみ）
// - Code: エラーをHRESULT形式の状態コードへ変換する
//
// # 前提要件
//   - v4l2loopback: ループバック出力を使う場合のみ
//     sudo modprobe v4l2loopback card_label="Go VCam" exclusive_caps=1
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
