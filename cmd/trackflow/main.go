package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trackflow-audio/trackflow/api/route"
	"github.com/trackflow-audio/trackflow/bootstrap"
)

func main() {
	app := bootstrap.App()
	defer app.CloseDBConnection()

	env := app.Env
	db := app.Mongo.Database(env.DBName)

	timeout := time.Duration(env.ContextTimeout) * time.Second

	engine := gin.Default()
	route.Setup(env, timeout, db, engine)

	if err := engine.Run(env.ServerAddress); err != nil {
		log.Fatal("HTTP服务启动失败: ", err)
	}
}
