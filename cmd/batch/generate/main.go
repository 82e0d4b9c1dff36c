package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/charmbracelet/log"

	"github.com/uma-arai/hotelgen-batch/internal/common/config"
	"github.com/uma-arai/hotelgen-batch/internal/common/utils"
	"github.com/uma-arai/hotelgen-batch/internal/service/batch"
)

const (
	projectName = "hotelgen-batch"
)

func main() {
	// コマンドライン引数のパース
	timeout := flag.Duration("timeout", 2*time.Hour, "バッチ処理のタイムアウト時間")
	jobFile := flag.String("job", "", "ジョブ定義ファイル (未指定時はHOTELGEN_JOB_FILE)")
	flag.Parse()

	// 最後の引数として渡されたタスクトークンを取得
	// ENV=LOCALの場合はタスクトークンを取得しない
	taskToken := "DUMMY_TASK_TOKEN"
	if os.Getenv("ENV") != "LOCAL" {
		if flag.NArg() == 0 || flag.Arg(flag.NArg()-1) == "" {
			log.Fatal("Task token is required")
		}
		taskToken = flag.Arg(flag.NArg() - 1)
	}

	// 設定の読み込み
	cfg, err := config.LoadConfig(taskToken)
	if err != nil {
		log.Fatal("Failed to load config", "err", err, "stack", string(debug.Stack()))
	}
	if *jobFile != "" {
		cfg.Generation.JobFile = *jobFile
	}
	logger := utils.NewLogger(os.Stderr, cfg.LogLevel, cfg.IsLocal())
	log.SetDefault(logger)

	// X-Ray設定
	if cfg.EnableTracing {
		if err := xray.Configure(xray.Config{
			DaemonAddr:     "127.0.0.1:2000", // X-Rayデーモンのアドレス
			ServiceVersion: "1.0.0",
		}); err != nil {
			logger.Warn("Failed to configure X-Ray", "err", err)
			// X-Ray設定失敗時はデフォルトの設定を使用
			if configErr := xray.Configure(xray.Config{}); configErr != nil {
				logger.Fatal("Failed to configure default X-Ray settings", "err", configErr)
			}
		}
		os.Setenv("AWS_XRAY_CONTEXT_MISSING", "LOG_ERROR")
	}

	// Step Functionsクライアントの初期化
	var sfnClient *sfn.Client
	if !cfg.IsLocal() {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			logger.Fatal("Failed to load AWS config", "err", err, "stack", string(debug.Stack()))
		}
		sfnClient = sfn.NewFromConfig(awsCfg)
	}

	// サービスの初期化
	service, err := batch.NewGenerationBatchService(cfg, sfnClient)
	if err != nil {
		sendTaskFailure(context.Background(), cfg, sfnClient, taskToken, err)
		logger.Fatal("Failed to create service", "err", err, "stack", string(debug.Stack()))
	}
	defer service.Close()

	// コンテキストの作成
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// X-Rayセグメントの作成
	if cfg.EnableTracing {
		var seg *xray.Segment
		ctx, seg = xray.BeginSegment(ctx, projectName)
		defer seg.Close(nil)

		// セグメントにメタデータを追加
		if err := seg.AddMetadata("task_token", taskToken); err != nil {
			logger.Warn("Failed to add task_token metadata", "err", err)
		}
		if err := seg.AddMetadata("timeout", timeout.String()); err != nil {
			logger.Warn("Failed to add timeout metadata", "err", err)
		}
	}

	// シグナルハンドリングの設定
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// バッチ処理の実行
	errChan := make(chan error, 1)
	go func() {
		errChan <- utils.RunWithTimeout(ctx, *timeout, service.Run)
	}()

	// シグナルまたはエラーの待機
	select {
	case sig := <-sigChan:
		logger.Warn("Received signal, cancelling", "signal", sig)
		cancel()
		// 中断時の後始末 (出力の破棄) が終わるのを待つ
		select {
		case err := <-errChan:
			logger.Warn("Batch process cancelled", "err", err)
		case <-time.After(30 * time.Second):
			logger.Error("Batch process did not stop in time")
		}
		os.Exit(130)
	case err := <-errChan:
		if err != nil {
			logger.Error("Batch process failed", "err", err)
			sendTaskFailure(ctx, cfg, sfnClient, taskToken, err)
			os.Exit(1)
		}
		logger.Info("Batch process completed successfully")
	}
}

// sendTaskFailure はローカル環境以外の場合のみStep Functionsにエラーを通知します
func sendTaskFailure(ctx context.Context, cfg *config.Config, sfnClient *sfn.Client, taskToken string, cause error) {
	if cfg.IsLocal() || sfnClient == nil {
		return
	}
	// Causeは32768文字まで
	msg := cause.Error()
	if len(msg) > 32768 {
		msg = msg[:32768]
	}
	input := &sfn.SendTaskFailureInput{
		TaskToken: aws.String(taskToken),
		Error:     aws.String("Batch process failed"),
		Cause:     aws.String(msg),
	}
	if _, err := sfnClient.SendTaskFailure(context.WithoutCancel(ctx), input); err != nil {
		log.Error("Failed to send task failure", "err", err, "stack", string(debug.Stack()))
	}
}
