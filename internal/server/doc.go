// Package server は、仮想カメラを操作・配信するHTTPサーバーを管理します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - カメラの開始・停止・再起動の受け付け
//   - MJPEGストリームとスナップショットの配信
//
// 仕様:
//   - ルーティングはgin、サーバー本体はnet/http
//   - 開始・停止の結果はHRESULT形式のコード（例: "0x00000000"）で返す
//   - グレースフルシャットダウンに対応
//   - 複数クライアントの同時接続をサポート
package server
