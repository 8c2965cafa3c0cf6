package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/trackflow-audio/trackflow/mongo"
)

func NewMongoDatabase(env *Env) mongo.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbHost := env.DBHost
	dbPort := env.DBPort
	dbUser := env.DBUser
	dbPass := env.DBPass

	mongodbURI := fmt.Sprintf("mongodb://%s:%s@%s:%s", dbUser, dbPass, dbHost, dbPort)
	if dbUser == "" || dbPass == "" {
		mongodbURI = fmt.Sprintf("mongodb://%s:%s", dbHost, dbPort)
	}

	client, err := mongo.NewClient(mongodbURI)
	if err != nil {
		log.Fatal("MongoDB客户端创建失败: ", err)
	}

	if err := client.Connect(ctx); err != nil {
		log.Fatal("MongoDB连接失败: ", err)
	}

	if err := client.Ping(ctx); err != nil {
		log.Fatal("MongoDB心跳失败: ", err)
	}

	return client
}

func CloseMongoDBConnection(client mongo.Client) {
	if client == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Printf("MongoDB断开失败: %v", err)
		return
	}

	log.Println("MongoDB连接已关闭")
}
