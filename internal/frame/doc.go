// Package frame 仮想カメラに流すフレームの生成を担う
//
// # 責務
// - フレームジェネレーターとファクトリーの契約の定義
// - RGB32 (1ピクセル4バイト) バッファへの変換と書き込み
// - デモ用アニメーション (回転する円弧と中央のテキスト) の描画
// - テストパターン (SMPTEカラーバー) の描画
// - フレームレートの自己調整
//
// # 仕様
//   - ジェネレーターは呼び出しごとに要求されたバイト数をちょうど書き込む
//   - ピクセルはB,G,R,Xの順で、行優先・上から下に並ぶ
//   - ファクトリーは接続ごとに呼ばれ、ジェネレーター同士は状態を共有しない
//   - 描画資源は生成時に一度だけ確保し、フレームごとの確保を避ける
package frame
